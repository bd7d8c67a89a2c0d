package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goalpost-hq/goalpost/internal/types"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the SQLite-backed persistence layer.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- Evaluation periods ---

// CreatePeriod stores a new evaluation period with status open.
func (s *SQLiteStore) CreatePeriod(ctx context.Context, p types.NewPeriod) (*types.EvaluationPeriod, error) {
	now := time.Now().UTC()
	period := types.EvaluationPeriod{
		ID:        ulid.Make().String(),
		Name:      p.Name,
		StartDate: p.StartDate.UTC(),
		EndDate:   p.EndDate.UTC(),
		Status:    types.PeriodOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluation_periods (id, name, start_date, end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, period.ID, period.Name,
		period.StartDate.Format(time.RFC3339), period.EndDate.Format(time.RFC3339),
		string(period.Status), now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert period: %w", err)
	}

	return &period, nil
}

func scanPeriod(scanner interface{ Scan(...any) error }) (*types.EvaluationPeriod, error) {
	var p types.EvaluationPeriod
	var start, end, status, createdAt, updatedAt string

	if err := scanner.Scan(&p.ID, &p.Name, &start, &end, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	p.Status = types.PeriodStatus(status)
	if t, err := time.Parse(time.RFC3339, start); err == nil {
		p.StartDate = t
	}
	if t, err := time.Parse(time.RFC3339, end); err == nil {
		p.EndDate = t
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		p.UpdatedAt = t
	}

	return &p, nil
}

// GetPeriod retrieves an evaluation period by ID.
func (s *SQLiteStore) GetPeriod(ctx context.Context, id string) (*types.EvaluationPeriod, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, start_date, end_date, status, created_at, updated_at
		FROM evaluation_periods WHERE id = ?
	`, id)

	period, err := scanPeriod(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan period: %w", err)
	}
	return period, nil
}

// ListPeriods returns all evaluation periods, newest first.
func (s *SQLiteStore) ListPeriods(ctx context.Context) ([]types.EvaluationPeriod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, status, created_at, updated_at
		FROM evaluation_periods ORDER BY start_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query periods: %w", err)
	}
	defer rows.Close()

	var periods []types.EvaluationPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		periods = append(periods, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periods: %w", err)
	}
	return periods, nil
}

// ClosePeriod transitions a period to closed. Closing an already-closed
// period is a no-op.
func (s *SQLiteStore) ClosePeriod(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `
		UPDATE evaluation_periods SET status = ?, updated_at = ? WHERE id = ?
	`, string(types.PeriodClosed), now, id)
	if err != nil {
		return fmt.Errorf("close period: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseExpiredPeriods closes all open periods whose end date has passed.
// Returns the number of periods closed.
func (s *SQLiteStore) CloseExpiredPeriods(ctx context.Context, asOf time.Time) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `
		UPDATE evaluation_periods SET status = ?, updated_at = ?
		WHERE status = ? AND end_date < ?
	`, string(types.PeriodClosed), now, string(types.PeriodOpen), asOf.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("close expired periods: %w", err)
	}
	return result.RowsAffected()
}

// --- Goals ---

const goalColumns = `id, period_id, owner_id, variant, status,
	title, performance_type, specific_goal, achievement_criteria, method, weight,
	action_plan, competencies, selected_actions, created_at, updated_at`

func scanGoal(scanner interface{ Scan(...any) error }) (*types.Goal, error) {
	var g types.Goal
	var variant, status, createdAt, updatedAt string
	var title, perfType, specificGoal, criteria, method string
	var weight int
	var actionPlan, competenciesJSON, selectedActionsJSON string

	err := scanner.Scan(
		&g.ID, &g.PeriodID, &g.OwnerID, &variant, &status,
		&title, &perfType, &specificGoal, &criteria, &method, &weight,
		&actionPlan, &competenciesJSON, &selectedActionsJSON,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.Variant = types.GoalVariant(variant)
	g.Status = types.GoalStatus(status)

	switch g.Variant {
	case types.VariantPerformance:
		g.Performance = &types.PerformanceFields{
			Title:               title,
			PerformanceType:     perfType,
			SpecificGoal:        specificGoal,
			AchievementCriteria: criteria,
			Method:              method,
			Weight:              weight,
		}
	case types.VariantCompetency:
		comp := &types.CompetencyFields{ActionPlan: actionPlan}
		if competenciesJSON != "" && competenciesJSON != "[]" {
			if err := json.Unmarshal([]byte(competenciesJSON), &comp.Competencies); err != nil {
				return nil, fmt.Errorf("parse competencies JSON: %w", err)
			}
		}
		if selectedActionsJSON != "" && selectedActionsJSON != "{}" {
			if err := json.Unmarshal([]byte(selectedActionsJSON), &comp.SelectedActions); err != nil {
				return nil, fmt.Errorf("parse selected actions JSON: %w", err)
			}
		}
		g.Competency = comp
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		g.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		g.UpdatedAt = t
	}

	return &g, nil
}

func goalColumnValues(variant types.GoalVariant, perf *types.PerformanceFields, comp *types.CompetencyFields) (title, perfType, specificGoal, criteria, method string, weight int, actionPlan, competenciesJSON, selectedActionsJSON string, err error) {
	competenciesJSON = "[]"
	selectedActionsJSON = "{}"

	switch variant {
	case types.VariantPerformance:
		if perf != nil {
			title = perf.Title
			perfType = perf.PerformanceType
			specificGoal = perf.SpecificGoal
			criteria = perf.AchievementCriteria
			method = perf.Method
			weight = perf.Weight
		}
	case types.VariantCompetency:
		if comp != nil {
			actionPlan = comp.ActionPlan
			if comp.Competencies != nil {
				b, merr := json.Marshal(comp.Competencies)
				if merr != nil {
					err = fmt.Errorf("marshal competencies: %w", merr)
					return
				}
				competenciesJSON = string(b)
			}
			if comp.SelectedActions != nil {
				b, merr := json.Marshal(comp.SelectedActions)
				if merr != nil {
					err = fmt.Errorf("marshal selected actions: %w", merr)
					return
				}
				selectedActionsJSON = string(b)
			}
		}
	}
	return
}

// CreateGoal stores a new goal in an open period.
func (s *SQLiteStore) CreateGoal(ctx context.Context, g types.NewGoal) (*types.Goal, error) {
	period, err := s.GetPeriod(ctx, g.PeriodID)
	if err != nil {
		return nil, err
	}
	if period.Status != types.PeriodOpen {
		return nil, ErrPeriodClosed
	}

	title, perfType, specificGoal, criteria, method, weight, actionPlan, competenciesJSON, selectedActionsJSON, err := goalColumnValues(g.Variant, g.Performance, g.Competency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	id := ulid.Make().String()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, g.PeriodID, g.OwnerID, string(g.Variant), string(g.Status),
		title, perfType, specificGoal, criteria, method, weight,
		actionPlan, competenciesJSON, selectedActionsJSON,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}

	return s.GetGoal(ctx, id)
}

// GetGoal retrieves a goal by ID.
func (s *SQLiteStore) GetGoal(ctx context.Context, id string) (*types.Goal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)

	goal, err := scanGoal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan goal: %w", err)
	}
	return goal, nil
}

// UpdateGoal applies a variant-specific patch to a draft goal.
// Submitted, approved and expired goals reject writes.
func (s *SQLiteStore) UpdateGoal(ctx context.Context, id string, patch types.GoalPatch) (*types.Goal, error) {
	goal, err := s.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal.Status != types.StatusDraft {
		return nil, ErrGoalLocked
	}

	period, err := s.GetPeriod(ctx, goal.PeriodID)
	if err != nil {
		return nil, err
	}
	if period.Status != types.PeriodOpen {
		return nil, ErrPeriodClosed
	}

	switch goal.Variant {
	case types.VariantPerformance:
		if patch.Performance == nil {
			return nil, ErrVariantMismatch
		}
	case types.VariantCompetency:
		if patch.Competency == nil {
			return nil, ErrVariantMismatch
		}
	}

	title, perfType, specificGoal, criteria, method, weight, actionPlan, competenciesJSON, selectedActionsJSON, err := goalColumnValues(goal.Variant, patch.Performance, patch.Competency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		UPDATE goals SET
			title = ?, performance_type = ?, specific_goal = ?, achievement_criteria = ?,
			method = ?, weight = ?, action_plan = ?, competencies = ?, selected_actions = ?,
			updated_at = ?
		WHERE id = ?
	`, title, perfType, specificGoal, criteria, method, weight,
		actionPlan, competenciesJSON, selectedActionsJSON, now, id)
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}

	return s.GetGoal(ctx, id)
}

// DeleteGoal removes a draft goal.
func (s *SQLiteStore) DeleteGoal(ctx context.Context, id string) error {
	goal, err := s.GetGoal(ctx, id)
	if err != nil {
		return err
	}
	if goal.Status != types.StatusDraft {
		return ErrGoalLocked
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

// ListGoals returns goals in a period, optionally filtered by owner and status.
func (s *SQLiteStore) ListGoals(ctx context.Context, periodID string, filter types.GoalFilter) ([]types.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE period_id = ?`
	args := []any{periodID}

	if filter.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var goals []types.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

// SubmitGoals transitions an owner's draft goals in a period to
// submitted. The weight-sum invariant is enforced here, at submission
// time, not at draft-save time.
func (s *SQLiteStore) SubmitGoals(ctx context.Context, periodID, ownerID string) (*types.SubmitResult, error) {
	period, err := s.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if period.Status != types.PeriodOpen {
		return nil, ErrPeriodClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var submitted int64
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM goals
		WHERE period_id = ? AND owner_id = ? AND status IN (?, ?)
	`, periodID, ownerID, string(types.StatusSubmitted), string(types.StatusApproved)).Scan(&submitted)
	if err != nil {
		return nil, fmt.Errorf("count submitted goals: %w", err)
	}
	if submitted > 0 {
		return nil, ErrAlreadySubmitted
	}

	var drafts int64
	var weightTotal sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       SUM(CASE WHEN variant = ? THEN weight ELSE 0 END)
		FROM goals
		WHERE period_id = ? AND owner_id = ? AND status = ?
	`, string(types.VariantPerformance), periodID, ownerID, string(types.StatusDraft)).Scan(&drafts, &weightTotal)
	if err != nil {
		return nil, fmt.Errorf("sum goal weights: %w", err)
	}
	if drafts == 0 {
		return nil, ErrNothingToSubmit
	}
	if weightTotal.Int64 != 100 {
		return nil, ErrWeightSum
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := tx.ExecContext(ctx, `
		UPDATE goals SET status = ?, updated_at = ?
		WHERE period_id = ? AND owner_id = ? AND status = ?
	`, string(types.StatusSubmitted), now, periodID, ownerID, string(types.StatusDraft))
	if err != nil {
		return nil, fmt.Errorf("submit goals: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &types.SubmitResult{
		Submitted:   int(affected),
		WeightTotal: int(weightTotal.Int64),
	}, nil
}

// ExpireAbandonedDrafts marks draft goals in closed periods as expired
// so dashboards can surface work that was never submitted.
func (s *SQLiteStore) ExpireAbandonedDrafts(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `
		UPDATE goals SET status = ?, updated_at = ?
		WHERE status = ? AND period_id IN (
			SELECT id FROM evaluation_periods WHERE status = ?
		)
	`, string(types.StatusExpired), now, string(types.StatusDraft), string(types.PeriodClosed))
	if err != nil {
		return 0, fmt.Errorf("expire drafts: %w", err)
	}
	return result.RowsAffected()
}

// --- Reviews ---

// CreateReview records supervisor feedback on an employee's submitted
// goal set and approves the submitted goals in the same transaction.
func (s *SQLiteStore) CreateReview(ctx context.Context, r types.NewReview) (*types.Review, error) {
	if _, err := s.GetPeriod(ctx, r.PeriodID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var submitted int64
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM goals
		WHERE period_id = ? AND owner_id = ? AND status = ?
	`, r.PeriodID, r.EmployeeID, string(types.StatusSubmitted)).Scan(&submitted)
	if err != nil {
		return nil, fmt.Errorf("count submitted goals: %w", err)
	}
	if submitted == 0 {
		return nil, ErrNothingToSubmit
	}

	now := time.Now().UTC()
	review := types.Review{
		ID:         ulid.Make().String(),
		PeriodID:   r.PeriodID,
		ReviewerID: r.ReviewerID,
		EmployeeID: r.EmployeeID,
		Comments:   r.Comments,
		Rating:     r.Rating,
		CreatedAt:  now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reviews (id, period_id, reviewer_id, employee_id, comments, rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, review.ID, review.PeriodID, review.ReviewerID, review.EmployeeID,
		review.Comments, review.Rating, now.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateReview
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE goals SET status = ?, updated_at = ?
		WHERE period_id = ? AND owner_id = ? AND status = ?
	`, string(types.StatusApproved), now.Format(time.RFC3339),
		r.PeriodID, r.EmployeeID, string(types.StatusSubmitted))
	if err != nil {
		return nil, fmt.Errorf("approve goals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &review, nil
}

// ListReviews returns all reviews in a period.
func (s *SQLiteStore) ListReviews(ctx context.Context, periodID string) ([]types.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, period_id, reviewer_id, employee_id, comments, rating, created_at
		FROM reviews WHERE period_id = ? ORDER BY created_at ASC
	`, periodID)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []types.Review
	for rows.Next() {
		var r types.Review
		var createdAt string
		if err := rows.Scan(&r.ID, &r.PeriodID, &r.ReviewerID, &r.EmployeeID, &r.Comments, &r.Rating, &createdAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}

// --- Organization ---

// CreateUser stores a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, u types.NewUser) (*types.User, error) {
	now := time.Now().UTC()
	user := types.User{
		ID:           ulid.Make().String(),
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
		CreatedAt:    now,
	}

	var deptID any
	if u.DepartmentID != "" {
		deptID = u.DepartmentID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, department_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ID, user.Name, user.Email, string(user.Role), deptID, now.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &user, nil
}

func scanUser(scanner interface{ Scan(...any) error }) (*types.User, error) {
	var u types.User
	var role, createdAt string
	var deptID sql.NullString

	if err := scanner.Scan(&u.ID, &u.Name, &u.Email, &role, &deptID, &createdAt); err != nil {
		return nil, err
	}

	u.Role = types.Role(role)
	if deptID.Valid {
		u.DepartmentID = deptID.String
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		u.CreatedAt = t
	}
	return &u, nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*types.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, department_id, created_at FROM users WHERE id = ?
	`, id)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]types.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, role, department_id, created_at FROM users ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// CreateDepartment stores a new department.
func (s *SQLiteStore) CreateDepartment(ctx context.Context, d types.NewDepartment) (*types.Department, error) {
	now := time.Now().UTC()
	dept := types.Department{
		ID:        ulid.Make().String(),
		Name:      d.Name,
		ParentID:  d.ParentID,
		CreatedAt: now,
	}

	var parentID any
	if d.ParentID != "" {
		parentID = d.ParentID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO departments (id, name, parent_id, created_at)
		VALUES (?, ?, ?, ?)
	`, dept.ID, dept.Name, parentID, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert department: %w", err)
	}

	return &dept, nil
}

// ListDepartments returns all departments.
func (s *SQLiteStore) ListDepartments(ctx context.Context) ([]types.Department, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, parent_id, created_at FROM departments ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query departments: %w", err)
	}
	defer rows.Close()

	var departments []types.Department
	for rows.Next() {
		var d types.Department
		var parentID sql.NullString
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Name, &parentID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		if parentID.Valid {
			d.ParentID = parentID.String
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			d.CreatedAt = t
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate departments: %w", err)
	}
	return departments, nil
}

// --- Dashboards and stats ---

func (s *SQLiteStore) goalStatusCounts(ctx context.Context, query string, args ...any) ([]types.GoalStatusCount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()

	var counts []types.GoalStatusCount
	for rows.Next() {
		var c types.GoalStatusCount
		var status string
		if err := rows.Scan(&status, &c.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		c.Status = types.GoalStatus(status)
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

// GetDashboard builds a role-shaped summary for the given user.
// periodID may be empty; period-scoped sections are then omitted.
func (s *SQLiteStore) GetDashboard(ctx context.Context, userID, periodID string) (*types.DashboardSummary, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &types.DashboardSummary{
		UserID:   user.ID,
		Role:     user.Role,
		PeriodID: periodID,
	}

	switch user.Role {
	case types.RoleEmployee, types.RoleSupervisor:
		if periodID != "" {
			counts, err := s.goalStatusCounts(ctx, `
				SELECT status, COUNT(*) FROM goals
				WHERE owner_id = ? AND period_id = ?
				GROUP BY status
			`, userID, periodID)
			if err != nil {
				return nil, err
			}
			summary.OwnGoals = counts
		}
		if user.Role == types.RoleSupervisor && user.DepartmentID != "" && periodID != "" {
			err = s.db.QueryRowContext(ctx, `
				SELECT COUNT(*) FROM users WHERE department_id = ? AND id != ?
			`, user.DepartmentID, userID).Scan(&summary.TeamSize)
			if err != nil {
				return nil, fmt.Errorf("count team size: %w", err)
			}
			err = s.db.QueryRowContext(ctx, `
				SELECT COUNT(DISTINCT owner_id) FROM goals
				WHERE period_id = ? AND status IN (?, ?)
				AND owner_id IN (SELECT id FROM users WHERE department_id = ? AND id != ?)
			`, periodID, string(types.StatusSubmitted), string(types.StatusApproved),
				user.DepartmentID, userID).Scan(&summary.TeamSubmitted)
			if err != nil {
				return nil, fmt.Errorf("count team submissions: %w", err)
			}
		}
	case types.RoleAdmin:
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&summary.TotalUsers); err != nil {
			return nil, fmt.Errorf("count users: %w", err)
		}
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM goals`).Scan(&summary.TotalGoals); err != nil {
			return nil, fmt.Errorf("count goals: %w", err)
		}
		counts, err := s.goalStatusCounts(ctx, `
			SELECT status, COUNT(*) FROM goals GROUP BY status
		`)
		if err != nil {
			return nil, err
		}
		summary.GoalsByState = counts
	}

	return summary, nil
}

// GetStats returns aggregate store statistics.
func (s *SQLiteStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	var stats types.StoreStats

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM goals`).Scan(&stats.GoalCount); err != nil {
		return nil, fmt.Errorf("count goals: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM evaluation_periods WHERE status = ?
	`, string(types.PeriodOpen)).Scan(&stats.OpenPeriods); err != nil {
		return nil, fmt.Errorf("count open periods: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.UserCount); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	return &stats, nil
}
