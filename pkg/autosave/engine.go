// Package autosave implements client-side optimistic editing with
// deferred persistence for goal forms: dirty tracking against
// last-synced snapshots, per-goal debounce, and a serialized save queue
// that reconciles temporary ids with server-assigned ones.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultDebounceInterval = 1 * time.Second
	defaultSaveAttempts     = 2
	retryBaseDelay          = 200 * time.Millisecond
)

// Engine coordinates the tracker, scheduler, queue and gate for one
// editing session.
type Engine struct {
	service GoalService
	cfg     Config

	tracker *Tracker
	sched   *Scheduler
	queue   *Queue
	gate    *Gate

	mu       sync.Mutex
	periodID string
	epoch    uint64
	closed   bool
	cancel   context.CancelFunc
}

// New creates an auto-save engine. The service is required; zero config
// fields get defaults.
func New(service GoalService, cfg Config) (*Engine, error) {
	if service == nil {
		return nil, errors.New("service is required")
	}
	if cfg.OwnerID == "" {
		return nil, errors.New("OwnerID is required")
	}
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = defaultDebounceInterval
	}
	if cfg.SaveAttempts == 0 {
		cfg.SaveAttempts = defaultSaveAttempts
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		service: service,
		cfg:     cfg,
		tracker: NewTracker(),
		gate:    NewGate(),
		cancel:  cancel,
	}
	e.queue = NewQueue(ctx, e.executeSave)
	e.sched = NewScheduler(cfg.DebounceInterval, e.queue.Enqueue)

	return e, nil
}

// State returns the current session state.
func (e *Engine) State() State {
	return e.gate.State()
}

// SelectPeriod switches the session to an evaluation period: pending
// timers are cancelled, the queue is emptied and the tracker cleared
// before the period's existing goals are fetched and seeded. If any
// fetched goal is already submitted or approved the session lands in
// StateBlocked and editing is refused until a different period is
// selected. Returns the fetched goals so the caller can populate form
// state.
func (e *Engine) SelectPeriod(ctx context.Context, periodID string) ([]RemoteGoal, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	e.sched.CancelAll()
	e.queue.Reset()
	e.tracker.ClearAll()
	e.periodID = periodID
	e.epoch++
	e.mu.Unlock()

	e.gate.BeginLoading()

	goals, err := e.service.ListGoals(ctx, periodID, e.cfg.OwnerID)
	if err != nil {
		e.gate.Reset()
		return nil, err
	}

	blocked := false
	seeded := 0
	for _, g := range goals {
		switch g.Status {
		case StatusSubmitted, StatusApproved:
			blocked = true
		case StatusDraft:
			e.tracker.TrackLoad(PersistedID(g.ID), g.Draft)
			seeded++
		}
	}
	if blocked {
		e.tracker.ClearAll()
	}

	e.gate.FinishLoading(blocked, seeded)
	return goals, nil
}

// Activate arms the pipeline. Callers invoke this once form state has
// settled after seeding, so loaded data is never mistaken for an edit.
func (e *Engine) Activate() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.mu.Unlock()

	return e.gate.Activate()
}

// NewGoalID mints a temporary id for a goal the user just started.
func (e *Engine) NewGoalID() GoalID {
	return NewTemporaryID(time.Now())
}

// Edit feeds one goal's latest form state through the pipeline: the
// tracker reclassifies it, and the scheduler either (re)starts its
// debounce timer (dirty and ready) or drops it (reverted or incomplete).
func (e *Engine) Edit(id GoalID, draft Draft) error {
	if e.isClosed() {
		return ErrClosed
	}
	if state := e.gate.State(); state != StateActive {
		if state == StateBlocked {
			return ErrBlocked
		}
		return ErrNotActive
	}

	e.tracker.TrackChange(id, draft)

	if e.tracker.IsDirty(id) && Ready(draft) {
		e.sched.Observe(id, draft)
	} else {
		e.sched.Cancel(id)
	}
	return nil
}

// Remove forgets a goal the user deleted from the form. A queued save
// for it is skipped at execution time.
func (e *Engine) Remove(id GoalID) {
	e.sched.Cancel(id)
	e.tracker.Clear(id)
}

// IsDirty reports whether a goal has unsaved changes.
func (e *Engine) IsDirty(id GoalID) bool {
	return e.tracker.IsDirty(id)
}

// Changed returns the goals with unsaved changes.
func (e *Engine) Changed() []ChangeRecord {
	return e.tracker.Changed()
}

// Flush blocks until the save queue has gone idle. Pending debounce
// timers are not forced; only already-queued saves are waited on.
func (e *Engine) Flush() {
	e.queue.Wait()
}

// Close tears the session down: timers cancelled, queue emptied, further
// edits refused. An in-flight save may finish on the wire but its result
// is discarded.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.epoch++
	e.sched.Close()
	e.queue.Close()
	e.cancel()
	return nil
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// session returns the current epoch and period. The epoch advances on
// every period switch and on close, so a save can tell whether the
// session it was queued for still exists.
func (e *Engine) session() (uint64, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch, e.periodID
}

// executeSave runs one dequeued entry. Preconditions are re-checked
// against live state because the draft may have changed or reverted
// since enqueue; a stale entry is a silent skip, not an error. The
// epoch captured here pins the save to its session: a period switch
// during a retry backoff or while the request is on the wire abandons
// the entry instead of persisting the old period's draft into the new
// one.
func (e *Engine) executeSave(ctx context.Context, id GoalID, variant Variant) {
	if e.isClosed() {
		return
	}

	epoch, periodID := e.session()

	draft, ok := e.tracker.Current(id)
	if !ok {
		return
	}
	if !e.tracker.IsDirty(id) || !Ready(draft) {
		return
	}

	backoff := retry.WithMaxRetries(uint64(e.cfg.SaveAttempts-1), retry.NewExponential(retryBaseDelay))

	var remote *RemoteGoal
	stale := false
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if cur, _ := e.session(); cur != epoch {
			stale = true
			return nil
		}
		var saveErr error
		if id.IsTemporary() {
			remote, saveErr = e.service.CreateGoal(ctx, periodID, e.cfg.OwnerID, draft)
		} else {
			remote, saveErr = e.service.UpdateGoal(ctx, id.Value, draft)
		}
		if saveErr != nil {
			return retry.RetryableError(saveErr)
		}
		return nil
	})
	if stale {
		return
	}
	if err != nil {
		// The goal stays dirty; the next genuine edit re-triggers the
		// debounce cycle. One failing save never aborts the queue.
		if ctx.Err() == nil && e.cfg.OnSaveError != nil {
			e.cfg.OnSaveError(id, err)
		}
		return
	}

	if cur, _ := e.session(); cur != epoch {
		// The session changed while the save was on the wire; its
		// result belongs to the old period and is discarded.
		return
	}

	if id.IsTemporary() {
		replacement := PersistedID(remote.ID)
		e.tracker.Migrate(id, replacement, remote.Draft)
		e.sched.Cancel(id)
		e.rearmIfDirty(replacement)
		if e.cfg.OnReconcile != nil {
			e.cfg.OnReconcile(id, replacement)
		}
		return
	}

	e.tracker.Rebaseline(id, remote.Draft)
	if !e.tracker.IsDirty(id) {
		e.sched.Cancel(id)
	}
}

// rearmIfDirty restarts the debounce cycle for a goal that picked up an
// edit while its save was in flight.
func (e *Engine) rearmIfDirty(id GoalID) {
	if !e.tracker.IsDirty(id) {
		return
	}
	if draft, ok := e.tracker.Current(id); ok && Ready(draft) {
		e.sched.Observe(id, draft)
	}
}
