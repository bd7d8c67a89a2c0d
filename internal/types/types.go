package types

import (
	"encoding/json"
	"time"
)

// GoalVariant identifies which field set a goal carries.
type GoalVariant string

const (
	VariantPerformance GoalVariant = "performance"
	VariantCompetency  GoalVariant = "competency"
)

// GoalStatus represents the lifecycle state of a goal.
type GoalStatus string

const (
	StatusDraft     GoalStatus = "draft"
	StatusSubmitted GoalStatus = "submitted"
	StatusApproved  GoalStatus = "approved"
	StatusExpired   GoalStatus = "expired"
)

// PeriodStatus represents the lifecycle state of an evaluation period.
type PeriodStatus string

const (
	PeriodOpen   PeriodStatus = "open"
	PeriodClosed PeriodStatus = "closed"
)

// Role represents a user's role in the organization.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleEmployee   Role = "employee"
)

// PerformanceFields is the field set for performance-variant goals.
type PerformanceFields struct {
	Title               string `json:"title"`
	PerformanceType     string `json:"performance_type"`
	SpecificGoal        string `json:"specific_goal"`
	AchievementCriteria string `json:"achievement_criteria"`
	Method              string `json:"method"`
	Weight              int    `json:"weight"`
}

// CompetencyFields is the field set for competency-variant goals.
// Competency references and selected-action maps are optional.
type CompetencyFields struct {
	ActionPlan      string              `json:"action_plan"`
	Competencies    []string            `json:"competencies,omitempty"`
	SelectedActions map[string][]string `json:"selected_actions,omitempty"`
}

// Goal represents a single evaluation goal. Exactly one of Performance
// or Competency is set, matching Variant.
type Goal struct {
	ID          string             `json:"id"`
	PeriodID    string             `json:"period_id"`
	OwnerID     string             `json:"owner_id"`
	Variant     GoalVariant        `json:"variant"`
	Status      GoalStatus         `json:"status"`
	Performance *PerformanceFields `json:"performance,omitempty"`
	Competency  *CompetencyFields  `json:"competency,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewGoal is the input type for creating goals (without generated fields).
type NewGoal struct {
	PeriodID    string             `json:"period_id"`
	OwnerID     string             `json:"owner_id"`
	Variant     GoalVariant        `json:"variant"`
	Status      GoalStatus         `json:"status"`
	Performance *PerformanceFields `json:"performance,omitempty"`
	Competency  *CompetencyFields  `json:"competency,omitempty"`
}

// GoalPatch is a partial update for one goal. Only the field set
// matching the goal's variant may be present.
type GoalPatch struct {
	Performance *PerformanceFields `json:"performance,omitempty"`
	Competency  *CompetencyFields  `json:"competency,omitempty"`
}

// GoalFilter narrows goal listings.
type GoalFilter struct {
	OwnerID string
	Status  GoalStatus
}

// GoalList is the response for goal listings.
type GoalList struct {
	Goals []Goal `json:"goals"`
}

// MarshalJSON ensures a nil slice in GoalList marshals as [] not null.
func (l GoalList) MarshalJSON() ([]byte, error) {
	if l.Goals == nil {
		l.Goals = []Goal{}
	}
	type Alias GoalList
	return json.Marshal(Alias(l))
}

// EvaluationPeriod is a bounded window in which goals are set and reviewed.
type EvaluationPeriod struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Status    PeriodStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewPeriod is the input type for creating evaluation periods.
type NewPeriod struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// PeriodList is the response for period listings.
type PeriodList struct {
	Periods []EvaluationPeriod `json:"periods"`
}

// MarshalJSON ensures a nil slice in PeriodList marshals as [] not null.
func (l PeriodList) MarshalJSON() ([]byte, error) {
	if l.Periods == nil {
		l.Periods = []EvaluationPeriod{}
	}
	type Alias PeriodList
	return json.Marshal(Alias(l))
}

// SubmitResult reports the outcome of submitting a goal set.
type SubmitResult struct {
	Submitted   int `json:"submitted"`
	WeightTotal int `json:"weight_total"`
}

// User represents an organization member.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	DepartmentID string    `json:"department_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser is the input type for creating users.
type NewUser struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	DepartmentID string `json:"department_id,omitempty"`
}

// UserList is the response for user listings.
type UserList struct {
	Users []User `json:"users"`
}

// MarshalJSON ensures a nil slice in UserList marshals as [] not null.
func (l UserList) MarshalJSON() ([]byte, error) {
	if l.Users == nil {
		l.Users = []User{}
	}
	type Alias UserList
	return json.Marshal(Alias(l))
}

// Department represents an organizational unit.
type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDepartment is the input type for creating departments.
type NewDepartment struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// DepartmentList is the response for department listings.
type DepartmentList struct {
	Departments []Department `json:"departments"`
}

// MarshalJSON ensures a nil slice in DepartmentList marshals as [] not null.
func (l DepartmentList) MarshalJSON() ([]byte, error) {
	if l.Departments == nil {
		l.Departments = []Department{}
	}
	type Alias DepartmentList
	return json.Marshal(Alias(l))
}

// Review is supervisor feedback on an employee's submitted goal set.
type Review struct {
	ID         string    `json:"id"`
	PeriodID   string    `json:"period_id"`
	ReviewerID string    `json:"reviewer_id"`
	EmployeeID string    `json:"employee_id"`
	Comments   string    `json:"comments"`
	Rating     int       `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewReview is the input type for creating reviews.
type NewReview struct {
	PeriodID   string `json:"period_id"`
	ReviewerID string `json:"reviewer_id"`
	EmployeeID string `json:"employee_id"`
	Comments   string `json:"comments"`
	Rating     int    `json:"rating"`
}

// ReviewList is the response for review listings.
type ReviewList struct {
	Reviews []Review `json:"reviews"`
}

// MarshalJSON ensures a nil slice in ReviewList marshals as [] not null.
func (l ReviewList) MarshalJSON() ([]byte, error) {
	if l.Reviews == nil {
		l.Reviews = []Review{}
	}
	type Alias ReviewList
	return json.Marshal(Alias(l))
}

// GoalStatusCount is a per-status goal tally.
type GoalStatusCount struct {
	Status GoalStatus `json:"status"`
	Count  int64      `json:"count"`
}

// DashboardSummary is the role-shaped dashboard payload. Fields beyond
// the common ones are populated according to the requesting user's role.
type DashboardSummary struct {
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
	PeriodID string `json:"period_id,omitempty"`

	// Employee: own goal tallies in the requested period.
	OwnGoals []GoalStatusCount `json:"own_goals,omitempty"`

	// Supervisor: submission coverage for the department.
	TeamSize      int64 `json:"team_size,omitempty"`
	TeamSubmitted int64 `json:"team_submitted,omitempty"`

	// Admin: platform-wide totals.
	TotalUsers   int64             `json:"total_users,omitempty"`
	TotalGoals   int64             `json:"total_goals,omitempty"`
	GoalsByState []GoalStatusCount `json:"goals_by_state,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	GoalCount   int64  `json:"goal_count"`
	OpenPeriods int64  `json:"open_periods"`
}

// StoreStats holds aggregate store statistics.
type StoreStats struct {
	GoalCount   int64 `json:"goal_count"`
	OpenPeriods int64 `json:"open_periods"`
	UserCount   int64 `json:"user_count"`
}
