package autosave

import (
	"context"
	"time"
)

// Variant identifies which field set a goal draft carries.
type Variant string

const (
	VariantPerformance Variant = "performance"
	VariantCompetency  Variant = "competency"
)

// PerformanceDraft holds the editable fields of a performance goal.
type PerformanceDraft struct {
	Title               string `json:"title"`
	PerformanceType     string `json:"performance_type"`
	SpecificGoal        string `json:"specific_goal"`
	AchievementCriteria string `json:"achievement_criteria"`
	Method              string `json:"method"`
	Weight              int    `json:"weight"`
}

// CompetencyDraft holds the editable fields of a competency goal.
// Competency references and selected-action maps are optional.
type CompetencyDraft struct {
	ActionPlan      string              `json:"action_plan"`
	Competencies    []string            `json:"competencies,omitempty"`
	SelectedActions map[string][]string `json:"selected_actions,omitempty"`
}

// Draft is one goal's in-memory form state. Exactly one of Performance
// or Competency is set, matching Variant.
type Draft struct {
	Variant     Variant           `json:"variant"`
	Performance *PerformanceDraft `json:"performance,omitempty"`
	Competency  *CompetencyDraft  `json:"competency,omitempty"`
}

// RemoteGoal is a goal as the server reports it.
type RemoteGoal struct {
	ID     string
	Status string
	Draft  Draft
}

// Goal status values as reported by the server.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusExpired   = "expired"
)

// GoalService is the backend contract the engine saves through.
type GoalService interface {
	// CreateGoal creates a draft goal and returns it with its
	// server-assigned id.
	CreateGoal(ctx context.Context, periodID, ownerID string, draft Draft) (*RemoteGoal, error)

	// UpdateGoal replaces the variant field set of an existing goal.
	UpdateGoal(ctx context.Context, id string, draft Draft) (*RemoteGoal, error)

	// ListGoals returns the caller's goals in a period, used once at
	// period-selection time to seed the tracker.
	ListGoals(ctx context.Context, periodID, ownerID string) ([]RemoteGoal, error)
}

// Config holds the auto-save engine configuration.
type Config struct {
	// OwnerID identifies the user whose goals are being edited.
	OwnerID string

	// DebounceInterval is how long edits must settle before a save is
	// queued (default: 1 second).
	DebounceInterval time.Duration

	// SaveAttempts is the number of tries per queued save, including
	// the first (default: 2). Backoff between tries is brief; a save
	// that exhausts its attempts stays dirty until the next edit.
	SaveAttempts int

	// OnReconcile is called after a successful create replaces a
	// temporary id with the server id. Optional.
	OnReconcile func(old, replacement GoalID)

	// OnSaveError is called when a save exhausts its attempts.
	// Optional; the engine continues either way.
	OnSaveError func(id GoalID, err error)
}
