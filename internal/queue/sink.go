package queue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/politicianfinder/edge-gate/internal/models"
	"go.uber.org/zap"
)

const (
	defaultSinkBuffer     = 1024
	defaultPublishTimeout = 5 * time.Second
)

// AsyncSink buffers gate events and publishes them from a background goroutine,
// so a slow broker never delays the request being denied. Events are dropped when
// the buffer is full.
type AsyncSink struct {
	publisher EventPublisher
	events    chan *models.GateEvent
	log       *zap.Logger
	dropped   atomic.Int64
	done      chan struct{}
}

// NewAsyncSink creates a sink. A non-positive buffer uses the default size.
func NewAsyncSink(publisher EventPublisher, buffer int, log *zap.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = defaultSinkBuffer
	}
	return &AsyncSink{
		publisher: publisher,
		events:    make(chan *models.GateEvent, buffer),
		log:       log,
		done:      make(chan struct{}),
	}
}

// Emit queues ev for publishing.
func (s *AsyncSink) Emit(_ context.Context, ev *models.GateEvent) {
	select {
	case s.events <- ev:
	default:
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			s.log.Warn("gate_event_dropped_buffer_full", zap.Int64("dropped_total", n))
		}
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Run publishes queued events until ctx is cancelled, then drains what is left.
// It must be called once; Done is closed when it returns.
func (s *AsyncSink) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case ev := <-s.events:
			s.publish(ev)
		}
	}
}

// Done is closed once Run has drained the buffer and returned.
func (s *AsyncSink) Done() <-chan struct{} {
	return s.done
}

func (s *AsyncSink) drain() {
	for {
		select {
		case ev := <-s.events:
			s.publish(ev)
		default:
			return
		}
	}
}

func (s *AsyncSink) publish(ev *models.GateEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Error("failed_to_publish_gate_event",
			zap.String("event_id", ev.ID),
			zap.String("type", string(ev.Type)),
			zap.Error(err),
		)
	}
}
