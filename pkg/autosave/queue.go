package autosave

import (
	"context"
	"sync"
)

type queueEntry struct {
	id      GoalID
	variant Variant
}

// Queue serializes save execution. Entries are FIFO and deduplicated by
// variant:id while queued, and a single worker drains them one at a
// time, so there is never more than one in-flight save overall and
// never a duplicate queued save for the same goal.
type Queue struct {
	mu      sync.Mutex
	entries []queueEntry
	queued  map[string]struct{}
	active  bool
	closed  bool
	idle    chan struct{}

	execute func(ctx context.Context, id GoalID, variant Variant)
	ctx     context.Context
}

// NewQueue creates a queue whose worker runs execute for each entry
// under ctx.
func NewQueue(ctx context.Context, execute func(ctx context.Context, id GoalID, variant Variant)) *Queue {
	return &Queue{
		queued:  make(map[string]struct{}),
		execute: execute,
		ctx:     ctx,
	}
}

func entryKey(id GoalID, variant Variant) string {
	return string(variant) + ":" + id.Value
}

// Enqueue adds a goal to the queue unless it is already queued.
// Idempotent under re-entry. Starts the worker if it is not running.
func (q *Queue) Enqueue(id GoalID, variant Variant) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	key := entryKey(id, variant)
	if _, dup := q.queued[key]; dup {
		return
	}
	q.queued[key] = struct{}{}
	q.entries = append(q.entries, queueEntry{id: id, variant: variant})

	if !q.active {
		q.active = true
		go q.drain()
	}
}

// drain processes entries strictly one at a time. Entries enqueued while
// draining are picked up by the same loop, so edits that arrive
// mid-flush are never missed.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if q.closed || len(q.entries) == 0 {
			q.active = false
			idle := q.idle
			q.idle = nil
			q.mu.Unlock()
			if idle != nil {
				close(idle)
			}
			return
		}
		entry := q.entries[0]
		q.entries = q.entries[1:]
		delete(q.queued, entryKey(entry.id, entry.variant))
		q.mu.Unlock()

		q.execute(q.ctx, entry.id, entry.variant)
	}
}

// Reset empties the queue. The worker stops after its current entry.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = nil
	q.queued = make(map[string]struct{})
}

// Close empties the queue and rejects further entries.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.entries = nil
	q.queued = make(map[string]struct{})
}

// Wait blocks until the worker has gone idle. Intended for tests and
// shutdown paths; returns immediately if nothing is queued.
func (q *Queue) Wait() {
	q.mu.Lock()
	if !q.active {
		q.mu.Unlock()
		return
	}
	if q.idle == nil {
		q.idle = make(chan struct{})
	}
	idle := q.idle
	q.mu.Unlock()

	<-idle
}
