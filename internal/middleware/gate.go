package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/politicianfinder/edge-gate/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/politicianfinder/edge-gate/internal/middleware"

// Outcome tells the gate what to do after a stage ran.
type Outcome int

const (
	// Continue hands the request to the next stage, or forwards it after the last one.
	Continue Outcome = iota
	// Respond ends the request successfully without forwarding it (CORS preflight).
	Respond
	// Deny ends the request with an error envelope.
	Deny
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Respond:
		return "responded"
	case Deny:
		return "denied"
	default:
		return "unknown"
	}
}

// Verdict is the decision a Stage made for one request.
type Verdict struct {
	Outcome Outcome
	Status  int
	// Header is merged into the response whatever the outcome.
	Header http.Header
	// Err and Message describe a Deny; Message is safe to show to the caller.
	Err     error
	Message string
	Event   models.GateEventType
	// Request, when set, replaces the request seen by later stages and the next handler.
	Request *http.Request
}

// Stage is one policy check of the gate. Stages must not write to the response.
type Stage interface {
	Name() string
	Check(r *http.Request) Verdict
}

// Gate runs its stages in order and stops at the first one that does not Continue.
type Gate struct {
	stages []Stage
	keyFn  func(*http.Request) string
	sink   EventSink
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithEventSink sets where deny events are sent. Defaults to a log sink.
func WithEventSink(sink EventSink) GateOption {
	return func(g *Gate) { g.sink = sink }
}

// WithClientKey sets how deny events identify the client.
func WithClientKey(fn func(*http.Request) string) GateOption {
	return func(g *Gate) { g.keyFn = fn }
}

// NewGate creates a gate running stages in the given order.
func NewGate(logger *zap.Logger, stages []Stage, opts ...GateOption) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gate{
		stages: stages,
		logger: logger,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.sink == nil {
		g.sink = NewLogSink(logger)
	}
	if g.keyFn == nil {
		g.keyFn = func(r *http.Request) string { return r.RemoteAddr }
	}
	return g
}

// Middleware wraps next with the gate.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := g.tracer.Start(r.Context(), "edge_gate")
		defer span.End()
		r = r.WithContext(ctx)

		for _, stage := range g.stages {
			v := stage.Check(r)
			mergeHeader(w.Header(), v.Header)

			switch v.Outcome {
			case Respond:
				span.SetAttributes(
					attribute.String("gate.state", v.Outcome.String()),
					attribute.String("gate.stage", stage.Name()),
				)
				w.WriteHeader(v.Status)
				return
			case Deny:
				span.SetAttributes(
					attribute.String("gate.state", v.Outcome.String()),
					attribute.String("gate.stage", stage.Name()),
					attribute.Int("http.status_code", v.Status),
				)
				span.SetStatus(codes.Error, v.Message)
				g.deny(w, r, stage, v)
				return
			}

			if v.Request != nil {
				r = v.Request
			}
		}

		span.SetAttributes(attribute.String("gate.state", "forwarded"))
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, stage Stage, v Verdict) {
	status := v.Status
	if status == 0 {
		status = http.StatusForbidden
	}
	reason := ""
	if v.Err != nil {
		reason = v.Err.Error()
	}

	if v.Event != "" {
		g.sink.Emit(r.Context(), &models.GateEvent{
			ID:         uuid.NewString(),
			Type:       v.Event,
			ClientKey:  g.keyFn(r),
			Method:     r.Method,
			Path:       r.URL.Path,
			StatusCode: status,
			Reason:     reason,
			RequestID:  requestIDOf(r),
			OccurredAt: g.now().UTC(),
		})
	}

	g.logger.Debug("gate_denied",
		zap.String("stage", stage.Name()),
		zap.Int("status_code", status),
		zap.String("reason", reason),
	)

	message := v.Message
	if message == "" {
		message = http.StatusText(status)
	}
	WriteError(w, r, status, http.StatusText(status), message, g.logger)
}

func mergeHeader(dst, src http.Header) {
	for k, vals := range src {
		dst.Del(k)
		for _, v := range vals {
			dst.Add(k, v)
		}
	}
}
