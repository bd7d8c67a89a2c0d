package worker

import (
	"context"
	"log/slog"
	"time"
)

// DraftAuditStore defines the operations required for the draft audit
// pass. Implemented by SQLiteStore.
type DraftAuditStore interface {
	// ExpireAbandonedDrafts marks draft goals in closed periods expired.
	// Returns the number of goals updated.
	ExpireAbandonedDrafts(ctx context.Context) (int64, error)
}

// DraftAuditCoordinator sweeps goals left in draft after their period
// closed and marks them expired so they stop showing up as editable.
type DraftAuditCoordinator struct {
	store    DraftAuditStore
	interval time.Duration
}

// NewDraftAuditCoordinator creates a draft audit coordinator.
func NewDraftAuditCoordinator(store DraftAuditStore, interval time.Duration) *DraftAuditCoordinator {
	return &DraftAuditCoordinator{
		store:    store,
		interval: interval,
	}
}

// Run starts the coordinator loop. Blocks until ctx is cancelled.
//
// Unlike PeriodCloseCoordinator this waits for the first ticker interval
// before processing. Abandoned drafts only appear after a period closes,
// and the period close pass runs first on startup; sweeping immediately
// would usually find nothing.
func (c *DraftAuditCoordinator) Run(ctx context.Context) {
	slog.Info("draft audit coordinator started",
		"component", "worker",
		"worker", "draft-audit-coordinator",
		"interval", c.interval.String(),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("draft audit coordinator stopped",
				"component", "worker",
				"worker", "draft-audit-coordinator",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *DraftAuditCoordinator) sweep(ctx context.Context) {
	start := time.Now()

	expired, err := c.store.ExpireAbandonedDrafts(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return // Graceful shutdown
		}
		slog.Error("draft audit sweep failed",
			"component", "worker",
			"worker", "draft-audit-coordinator",
			"error", err,
		)
		return
	}

	if expired == 0 {
		slog.Debug("no abandoned drafts found",
			"component", "worker",
			"worker", "draft-audit-coordinator",
		)
		return
	}

	slog.Info("abandoned drafts expired",
		"component", "worker",
		"worker", "draft-audit-coordinator",
		"goals_expired", expired,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
