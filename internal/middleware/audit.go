package middleware

import (
	"context"

	logpkg "github.com/politicianfinder/edge-gate/internal/logger"
	"github.com/politicianfinder/edge-gate/internal/models"
	"go.uber.org/zap"
)

// EventSink receives the deny events produced by the gate. Emit must not block the request for long.
type EventSink interface {
	Emit(ctx context.Context, ev *models.GateEvent)
}

// LogSink writes gate events as security log lines.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink logging through logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit implements EventSink.
func (s *LogSink) Emit(_ context.Context, ev *models.GateEvent) {
	s.logger.Warn(string(ev.Type),
		zap.String("event_id", ev.ID),
		zap.Int("status_code", ev.StatusCode),
		zap.String("method", ev.Method),
		zap.String("path", logpkg.SanitizePath(ev.Path)),
		zap.String("ip", logpkg.SanitizeString(ev.ClientKey, logpkg.MaxGeneralStringLength)),
		zap.String("reason", logpkg.SanitizeString(ev.Reason, logpkg.MaxErrorMessageLength)),
		zap.String("request_id", ev.RequestID),
	)
}

// MultiSink fans events out to several sinks.
type MultiSink []EventSink

// Emit implements EventSink.
func (m MultiSink) Emit(ctx context.Context, ev *models.GateEvent) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}
