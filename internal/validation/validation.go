package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goalpost-hq/goalpost/internal/types"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be valid UTF-8",
		}
	}
	return nil
}

// ValidateEnum returns an error if the value is not in the allowed list.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateIntRange returns an error if the value is outside [min, max].
func ValidateIntRange(field string, value, min, max int) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %d and %d", min, max),
		}
	}
	return nil
}

// ValidateULID returns an error if the value is not a valid ULID format.
// ULIDs are 26 characters using Crockford Base32 (excludes I, L, O, U).
func ValidateULID(field, value string) *ValidationError {
	if len(value) != 26 {
		return &ValidationError{
			Field:   field,
			Message: "must be a valid ULID (26 characters)",
		}
	}

	const crockfordBase32 = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	for _, r := range value {
		upper := strings.ToUpper(string(r))
		if !strings.Contains(crockfordBase32, upper) {
			return &ValidationError{
				Field:   field,
				Message: "must be a valid ULID (invalid character)",
			}
		}
	}
	return nil
}

const maxTextLength = 4000

// ValidateNewGoal validates a goal creation request.
// Draft goals may have sparse variant fields; weight is range-checked
// whenever present because out-of-range weights are never storable.
func ValidateNewGoal(g types.NewGoal) []ValidationError {
	var c Collector

	c.Add(ValidateRequired("period_id", g.PeriodID))
	c.Add(ValidateULID("period_id", g.PeriodID))
	c.Add(ValidateRequired("owner_id", g.OwnerID))
	c.Add(ValidateEnum("variant", string(g.Variant), []string{
		string(types.VariantPerformance),
		string(types.VariantCompetency),
	}))
	c.Add(ValidateEnum("status", string(g.Status), []string{
		string(types.StatusDraft),
		string(types.StatusSubmitted),
	}))

	switch g.Variant {
	case types.VariantPerformance:
		if g.Competency != nil {
			c.Add(&ValidationError{Field: "competency", Message: "must not be set for a performance goal"})
		}
		if g.Performance == nil {
			c.Add(&ValidationError{Field: "performance", Message: "is required for a performance goal"})
			break
		}
		c.Add(ValidateIntRange("performance.weight", g.Performance.Weight, 0, 100))
		c.Add(ValidateMaxLength("performance.title", g.Performance.Title, maxTextLength))
		c.Add(ValidateMaxLength("performance.specific_goal", g.Performance.SpecificGoal, maxTextLength))
		c.Add(ValidateMaxLength("performance.achievement_criteria", g.Performance.AchievementCriteria, maxTextLength))
		c.Add(ValidateMaxLength("performance.method", g.Performance.Method, maxTextLength))
	case types.VariantCompetency:
		if g.Performance != nil {
			c.Add(&ValidationError{Field: "performance", Message: "must not be set for a competency goal"})
		}
		if g.Competency == nil {
			c.Add(&ValidationError{Field: "competency", Message: "is required for a competency goal"})
			break
		}
		c.Add(ValidateMaxLength("competency.action_plan", g.Competency.ActionPlan, maxTextLength))
	}

	return c.Errors()
}

// ValidateGoalPatch validates a partial goal update. At most one
// variant field set may be present.
func ValidateGoalPatch(p types.GoalPatch) []ValidationError {
	var c Collector

	if p.Performance == nil && p.Competency == nil {
		c.Add(&ValidationError{Field: "patch", Message: "must contain performance or competency fields"})
		return c.Errors()
	}
	if p.Performance != nil && p.Competency != nil {
		c.Add(&ValidationError{Field: "patch", Message: "must not mix performance and competency fields"})
		return c.Errors()
	}
	if p.Performance != nil {
		c.Add(ValidateIntRange("performance.weight", p.Performance.Weight, 0, 100))
		c.Add(ValidateMaxLength("performance.title", p.Performance.Title, maxTextLength))
		c.Add(ValidateMaxLength("performance.specific_goal", p.Performance.SpecificGoal, maxTextLength))
		c.Add(ValidateMaxLength("performance.achievement_criteria", p.Performance.AchievementCriteria, maxTextLength))
		c.Add(ValidateMaxLength("performance.method", p.Performance.Method, maxTextLength))
	}
	if p.Competency != nil {
		c.Add(ValidateMaxLength("competency.action_plan", p.Competency.ActionPlan, maxTextLength))
	}

	return c.Errors()
}

// ValidateNewPeriod validates an evaluation period creation request.
func ValidateNewPeriod(p types.NewPeriod) []ValidationError {
	var c Collector

	c.Add(ValidateRequired("name", p.Name))
	c.Add(ValidateMaxLength("name", p.Name, 200))
	if p.StartDate.IsZero() {
		c.Add(&ValidationError{Field: "start_date", Message: "is required"})
	}
	if p.EndDate.IsZero() {
		c.Add(&ValidationError{Field: "end_date", Message: "is required"})
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && !p.EndDate.After(p.StartDate) {
		c.Add(&ValidationError{Field: "end_date", Message: "must be after start_date"})
	}

	return c.Errors()
}

// ValidateNewUser validates a user creation request.
func ValidateNewUser(u types.NewUser) []ValidationError {
	var c Collector

	c.Add(ValidateRequired("name", u.Name))
	c.Add(ValidateMaxLength("name", u.Name, 200))
	c.Add(ValidateRequired("email", u.Email))
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		c.Add(&ValidationError{Field: "email", Message: "must be a valid email address"})
	}
	c.Add(ValidateEnum("role", string(u.Role), []string{
		string(types.RoleAdmin),
		string(types.RoleSupervisor),
		string(types.RoleEmployee),
	}))

	return c.Errors()
}

// ValidateNewDepartment validates a department creation request.
func ValidateNewDepartment(d types.NewDepartment) []ValidationError {
	var c Collector

	c.Add(ValidateRequired("name", d.Name))
	c.Add(ValidateMaxLength("name", d.Name, 200))
	if d.ParentID != "" {
		c.Add(ValidateULID("parent_id", d.ParentID))
	}

	return c.Errors()
}

// ValidateNewReview validates a review creation request.
func ValidateNewReview(r types.NewReview) []ValidationError {
	var c Collector

	c.Add(ValidateRequired("period_id", r.PeriodID))
	c.Add(ValidateULID("period_id", r.PeriodID))
	c.Add(ValidateRequired("reviewer_id", r.ReviewerID))
	c.Add(ValidateRequired("employee_id", r.EmployeeID))
	c.Add(ValidateIntRange("rating", r.Rating, 1, 5))
	c.Add(ValidateMaxLength("comments", r.Comments, maxTextLength))

	return c.Errors()
}
