package autosave

import (
	"errors"
	"sync"
)

// State is the session gate state. The save pipeline only runs in
// StateActive; everything before that is setup.
type State int

const (
	// StateNoPeriod means no evaluation period has been selected.
	StateNoPeriod State = iota
	// StateLoading means existing goals for the period are being fetched.
	StateLoading
	// StateBlocked means the period already has submitted or approved
	// goals; no auto-saved drafts may co-exist with them. The only exit
	// is selecting a different period.
	StateBlocked
	// StateReadyEmpty means loading finished and the period has no goals.
	StateReadyEmpty
	// StateReadyLoaded means loading finished and existing drafts were
	// seeded into the tracker.
	StateReadyLoaded
	// StateActive means auto-save has been explicitly armed.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateNoPeriod:
		return "no_period"
	case StateLoading:
		return "loading"
	case StateBlocked:
		return "blocked"
	case StateReadyEmpty:
		return "ready_empty"
	case StateReadyLoaded:
		return "ready_loaded"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

var (
	// ErrNotActive is returned for edits made before the gate is armed.
	ErrNotActive = errors.New("auto-save is not active")
	// ErrBlocked is returned when the period already has submitted goals.
	ErrBlocked = errors.New("period has submitted goals; editing is blocked")
	// ErrNotReady is returned when Activate is called before loading
	// has finished.
	ErrNotReady = errors.New("existing goals have not finished loading")
	// ErrClosed is returned after the engine has been closed.
	ErrClosed = errors.New("engine is closed")
)

// Gate is the period/session state machine. Activation is a separate,
// explicit step after loading so freshly-seeded data never looks like a
// user edit.
type Gate struct {
	mu    sync.Mutex
	state State
}

// NewGate creates a gate in StateNoPeriod.
func NewGate() *Gate {
	return &Gate{state: StateNoPeriod}
}

// State returns the current gate state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// BeginLoading moves to StateLoading. Allowed from any state: selecting
// a period always restarts the session.
func (g *Gate) BeginLoading() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateLoading
}

// FinishLoading records the outcome of the fetch.
func (g *Gate) FinishLoading(blocked bool, seeded int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case blocked:
		g.state = StateBlocked
	case seeded == 0:
		g.state = StateReadyEmpty
	default:
		g.state = StateReadyLoaded
	}
}

// Activate arms the pipeline. Only valid once loading has finished and
// the period is not blocked.
func (g *Gate) Activate() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case StateReadyEmpty, StateReadyLoaded:
		g.state = StateActive
		return nil
	case StateBlocked:
		return ErrBlocked
	default:
		return ErrNotReady
	}
}

// Reset returns to StateNoPeriod, e.g. after a failed load.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateNoPeriod
}
