// Package worker provides the periodic execution primitive used by the
// detection cycle and the snapshot persister: run a function at a fixed
// interval, one invocation at a time, skipping ticks that come due while a
// run is still in flight.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Periodic runs fn every interval. Scheduling and business logic stay
// separate: fn is a plain function with no timer awareness.
type Periodic struct {
	name     string
	interval time.Duration
	fn       func(context.Context) error
	logger   *slog.Logger
}

// NewPeriodic creates a Periodic worker.
func NewPeriodic(name string, interval time.Duration, fn func(context.Context) error, logger *slog.Logger) *Periodic {
	return &Periodic{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger.With(slog.String("worker", name)),
	}
}

// Run executes fn once immediately and then on every tick until ctx is
// cancelled. Invocations never overlap: a tick that fires while fn is still
// running is dropped, not queued. Shutdown is cooperative; an in-flight run
// finishes before Run returns nil.
func (p *Periodic) Run(ctx context.Context) error {
	p.logger.Info("worker started", slog.Duration("interval", p.interval))
	defer p.logger.Info("worker stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.invoke(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.invoke(ctx)
			// Drop the tick that may have accumulated while fn ran.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

func (p *Periodic) invoke(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := p.fn(ctx); err != nil {
		p.logger.Error("run failed", slog.String("error", err.Error()))
	}
}
