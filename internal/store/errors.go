package store

import "errors"

var (
	ErrNotFound         = errors.New("record not found")
	ErrPeriodClosed     = errors.New("evaluation period is closed")
	ErrAlreadySubmitted = errors.New("goal set already submitted")
	ErrGoalLocked       = errors.New("goal is no longer editable")
	ErrVariantMismatch  = errors.New("patch variant does not match goal variant")
	ErrWeightSum        = errors.New("performance goal weights must sum to 100")
	ErrDuplicateReview  = errors.New("review already exists for this employee and period")
	ErrDuplicateEmail   = errors.New("a user with this email already exists")
	ErrNothingToSubmit  = errors.New("no draft goals to submit")
)
