// Package events carries session-resolved events from the engine to whoever
// cares: notification layers, reporting, or a Kafka topic. All sinks satisfy
// ports.EventSink and are injected at construction; there is no process-wide
// emitter.
package events

import (
	"context"
	"log/slog"

	"egress/internal/confirm/models"
	"egress/internal/confirm/ports"
)

// LogSink writes resolved events to the structured log. The default sink when
// nothing else is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, event models.ResolvedEvent) error {
	s.logger.InfoContext(ctx, "exit session resolved",
		"tracking_session_id", event.TrackingSessionID,
		"exit_session_id", event.ExitSessionID,
		"outcome", string(event.Outcome),
		"reason", string(event.Reason),
	)
	return nil
}

// Fanout publishes to every sink and reports the first error after all sinks
// have seen the event. One slow or broken consumer must not starve the rest.
type Fanout struct {
	sinks []ports.EventSink
}

func NewFanout(sinks ...ports.EventSink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Publish(ctx context.Context, event models.ResolvedEvent) error {
	var firstErr error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
