package events

import (
	"context"
	"log/slog"

	"egress/internal/confirm/models"
	"egress/internal/confirm/ports"
)

// AsyncSink decouples the engine from slow delivery backends. Publish enqueues
// and returns immediately; the paired Worker drains the inbox. If the inbox is
// full the event is dropped with a log line rather than blocking a state
// transition — resolution outcomes are already durable in the session store.
type AsyncSink struct {
	inbox  chan models.ResolvedEvent
	logger *slog.Logger
}

func NewAsyncSink(buffer int, logger *slog.Logger) *AsyncSink {
	return &AsyncSink{
		inbox:  make(chan models.ResolvedEvent, buffer),
		logger: logger,
	}
}

func (s *AsyncSink) Publish(ctx context.Context, event models.ResolvedEvent) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		s.logger.WarnContext(ctx, "event inbox full, dropping resolved event",
			"tracking_session_id", event.TrackingSessionID,
			"outcome", string(event.Outcome),
		)
		return nil
	}
}

// Worker consumes events from an AsyncSink and forwards them to the delivery
// sink. Run blocks until ctx is cancelled.
type Worker struct {
	sink     *AsyncSink
	delegate ports.EventSink
	logger   *slog.Logger
}

func NewWorker(sink *AsyncSink, delegate ports.EventSink, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, delegate: delegate, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.sink.inbox:
			if err := w.delegate.Publish(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to deliver resolved event",
					"tracking_session_id", event.TrackingSessionID,
					"error", err.Error(),
				)
			}
		}
	}
}
