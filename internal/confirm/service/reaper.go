package service

import (
	"context"
	"log/slog"
	"time"
)

// Reaper periodically sweeps for pending sessions stuck past the stale
// timeout and force-resolves them through the engine. It is a coarse backstop
// against lost timers and crashed processes, not a precise scheduler.
type Reaper struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger
}

func NewReaper(engine *Engine, interval time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{engine: engine, interval: interval, logger: logger}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	reaped, err := r.engine.ReapStale(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "stale session sweep hit errors",
			"reaped", reaped,
			"error", err.Error(),
		)
		return
	}
	if reaped > 0 {
		r.logger.InfoContext(ctx, "reaped stale exit sessions", "reaped", reaped)
	}
}
