package worker

import (
	"context"
	"log/slog"
	"time"
)

// PeriodCloserStore defines the operations required for automatic period
// closing. Implemented by SQLiteStore.
type PeriodCloserStore interface {
	// CloseExpiredPeriods closes open periods whose end date is before asOf.
	// Returns the number of periods closed.
	CloseExpiredPeriods(ctx context.Context, asOf time.Time) (int64, error)
}

// PeriodCloseCoordinator closes evaluation periods whose end date has
// passed, so clients see a consistent closed state without relying on
// an admin remembering to close them.
type PeriodCloseCoordinator struct {
	store    PeriodCloserStore
	interval time.Duration
}

// NewPeriodCloseCoordinator creates a period close coordinator.
func NewPeriodCloseCoordinator(store PeriodCloserStore, interval time.Duration) *PeriodCloseCoordinator {
	return &PeriodCloseCoordinator{
		store:    store,
		interval: interval,
	}
}

// Run starts the coordinator loop. Blocks until ctx is cancelled.
//
// The first pass runs immediately on startup: a server that was down
// when a period ended should close it as soon as it comes back.
func (c *PeriodCloseCoordinator) Run(ctx context.Context) {
	slog.Info("period close coordinator started",
		"component", "worker",
		"worker", "period-close-coordinator",
		"interval", c.interval.String(),
	)

	c.closeExpired(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("period close coordinator stopped",
				"component", "worker",
				"worker", "period-close-coordinator",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.closeExpired(ctx)
		}
	}
}

func (c *PeriodCloseCoordinator) closeExpired(ctx context.Context) {
	start := time.Now()

	closed, err := c.store.CloseExpiredPeriods(ctx, start.UTC())
	if err != nil {
		if ctx.Err() != nil {
			return // Graceful shutdown
		}
		slog.Error("failed to close expired periods",
			"component", "worker",
			"worker", "period-close-coordinator",
			"error", err,
		)
		return
	}

	if closed == 0 {
		slog.Debug("no expired periods to close",
			"component", "worker",
			"worker", "period-close-coordinator",
		)
		return
	}

	slog.Info("expired periods closed",
		"component", "worker",
		"worker", "period-close-coordinator",
		"periods_closed", closed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
