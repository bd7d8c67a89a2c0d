package autosave

import (
	"sync"
	"time"
)

// Scheduler debounces saves per goal. Each observed edit (re)starts that
// goal's timer, so only the settled state is ever handed to the queue;
// N edits inside the window produce one fire, not N.
type Scheduler struct {
	mu       sync.Mutex
	interval time.Duration
	fire     func(id GoalID, variant Variant)
	timers   map[GoalID]*time.Timer
	lastSeen map[GoalID]string
	closed   bool
}

// NewScheduler creates a scheduler that calls fire once a goal's edits
// have settled for interval.
func NewScheduler(interval time.Duration, fire func(id GoalID, variant Variant)) *Scheduler {
	return &Scheduler{
		interval: interval,
		fire:     fire,
		timers:   make(map[GoalID]*time.Timer),
		lastSeen: make(map[GoalID]string),
	}
}

// Observe notifies the scheduler of a dirty+ready goal's latest draft.
// If the serialized snapshot is unchanged since the last observation the
// call is a no-op; otherwise the goal's timer restarts.
func (s *Scheduler) Observe(id GoalID, draft Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	snap := string(snapshot(draft))
	if s.lastSeen[id] == snap {
		return
	}
	s.lastSeen[id] = snap

	if timer, ok := s.timers[id]; ok {
		timer.Stop()
	}

	variant := draft.Variant
	s.timers[id] = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.mu.Unlock()

		s.fire(id, variant)
	})
}

// Cancel drops a goal's pending timer and its last-seen marker, e.g.
// when it left the dirty+ready set by being reverted or saved.
func (s *Scheduler) Cancel(id GoalID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	delete(s.lastSeen, id)
}

// CancelAll drops every pending timer, e.g. on period change.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.lastSeen = make(map[GoalID]string)
}

// Close cancels all timers and rejects further observations.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
