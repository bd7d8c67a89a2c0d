package store

import (
	"context"
	"time"

	"github.com/goalpost-hq/goalpost/internal/types"
)

// Store defines the interface contract for all persistence operations.
type Store interface {
	// Evaluation periods
	CreatePeriod(ctx context.Context, p types.NewPeriod) (*types.EvaluationPeriod, error)
	GetPeriod(ctx context.Context, id string) (*types.EvaluationPeriod, error)
	ListPeriods(ctx context.Context) ([]types.EvaluationPeriod, error)
	ClosePeriod(ctx context.Context, id string) error
	CloseExpiredPeriods(ctx context.Context, asOf time.Time) (int64, error)

	// Goals
	CreateGoal(ctx context.Context, g types.NewGoal) (*types.Goal, error)
	GetGoal(ctx context.Context, id string) (*types.Goal, error)
	UpdateGoal(ctx context.Context, id string, patch types.GoalPatch) (*types.Goal, error)
	DeleteGoal(ctx context.Context, id string) error
	ListGoals(ctx context.Context, periodID string, filter types.GoalFilter) ([]types.Goal, error)
	SubmitGoals(ctx context.Context, periodID, ownerID string) (*types.SubmitResult, error)
	ExpireAbandonedDrafts(ctx context.Context) (int64, error)

	// Reviews
	CreateReview(ctx context.Context, r types.NewReview) (*types.Review, error)
	ListReviews(ctx context.Context, periodID string) ([]types.Review, error)

	// Organization
	CreateUser(ctx context.Context, u types.NewUser) (*types.User, error)
	GetUser(ctx context.Context, id string) (*types.User, error)
	ListUsers(ctx context.Context) ([]types.User, error)
	CreateDepartment(ctx context.Context, d types.NewDepartment) (*types.Department, error)
	ListDepartments(ctx context.Context) ([]types.Department, error)

	// Dashboards and stats
	GetDashboard(ctx context.Context, userID, periodID string) (*types.DashboardSummary, error)
	GetStats(ctx context.Context) (*types.StoreStats, error)

	Close() error
}
