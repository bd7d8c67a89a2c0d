package autosave

import (
	"bytes"
	"encoding/json"
	"sync"
)

// ChangeRecord is one dirty goal as reported by the tracker.
type ChangeRecord struct {
	ID      GoalID
	Variant Variant
	Current Draft
}

// changeRecord holds per-goal tracking state. Snapshots are canonical
// JSON so comparison is deep value equality, not pointer identity.
type changeRecord struct {
	variant  Variant
	original []byte // nil until the goal has synced at least once
	current  []byte
	draft    Draft
	dirty    bool
}

// Tracker keeps last-synced and current snapshots per goal and
// classifies goals as clean or dirty. Pure in-memory bookkeeping.
type Tracker struct {
	mu      sync.Mutex
	records map[GoalID]*changeRecord
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[GoalID]*changeRecord)}
}

func snapshot(d Draft) []byte {
	// encoding/json sorts map keys, so equal values always produce
	// equal bytes.
	b, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	return b
}

// TrackLoad establishes data as both the original and current snapshot
// for a goal and clears its dirty flag. Called once per goal when it is
// populated from the server. Re-running with identical data is a no-op
// with respect to dirtiness.
func (t *Tracker) TrackLoad(id GoalID, draft Draft) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := snapshot(draft)
	t.records[id] = &changeRecord{
		variant:  draft.Variant,
		original: snap,
		current:  snap,
		draft:    draft,
		dirty:    false,
	}
}

// TrackChange updates the current snapshot for a goal. A goal with no
// original snapshot (brand-new, never synced) is always dirty; otherwise
// dirtiness follows whether current still equals original, so an edit
// that restores the loaded value goes clean again.
func (t *Tracker) TrackChange(id GoalID, draft Draft) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := snapshot(draft)
	rec, ok := t.records[id]
	if !ok {
		t.records[id] = &changeRecord{
			variant: draft.Variant,
			current: snap,
			draft:   draft,
			dirty:   true,
		}
		return
	}

	rec.variant = draft.Variant
	rec.current = snap
	rec.draft = draft
	rec.dirty = rec.original == nil || !bytes.Equal(snap, rec.original)
}

// IsDirty reports whether a goal's current snapshot differs from its
// last-synced snapshot.
func (t *Tracker) IsDirty(id GoalID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	return ok && rec.dirty
}

// Current returns the latest draft for a goal, if tracked.
func (t *Tracker) Current(id GoalID) (Draft, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		return Draft{}, false
	}
	return rec.draft, true
}

// Changed returns the dirty goals.
func (t *Tracker) Changed() []ChangeRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changed []ChangeRecord
	for id, rec := range t.records {
		if rec.dirty {
			changed = append(changed, ChangeRecord{
				ID:      id,
				Variant: rec.variant,
				Current: rec.draft,
			})
		}
	}
	return changed
}

// Rebaseline records a successful save: the saved draft becomes the new
// original snapshot, so later edits are compared against this state,
// not the pre-save one. The current snapshot is kept as-is; an edit
// made while the save was in flight stays dirty instead of being
// clobbered by the save result.
func (t *Tracker) Rebaseline(id GoalID, saved Draft) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := snapshot(saved)
	rec, ok := t.records[id]
	if !ok {
		t.records[id] = &changeRecord{
			variant:  saved.Variant,
			original: snap,
			current:  snap,
			draft:    saved,
			dirty:    false,
		}
		return
	}

	rec.original = snap
	rec.dirty = !bytes.Equal(rec.current, snap)
}

// Migrate moves a goal's tracking state from a temporary id to its
// server-assigned id in one step: the new id is baselined with the
// saved draft and the old id is forgotten. The temporary id never
// reappears in tracker state afterwards. Like Rebaseline, a current
// snapshot newer than the saved one survives the move.
func (t *Tracker) Migrate(old, replacement GoalID, saved Draft) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := snapshot(saved)
	rec := &changeRecord{
		variant:  saved.Variant,
		original: snap,
		current:  snap,
		draft:    saved,
		dirty:    false,
	}
	if prev, ok := t.records[old]; ok {
		rec.current = prev.current
		rec.draft = prev.draft
		rec.dirty = !bytes.Equal(prev.current, snap)
	}
	delete(t.records, old)
	t.records[replacement] = rec
}

// Clear forgets one goal entirely.
func (t *Tracker) Clear(id GoalID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, id)
}

// ClearAll forgets every goal, e.g. on period reset.
func (t *Tracker) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[GoalID]*changeRecord)
}
