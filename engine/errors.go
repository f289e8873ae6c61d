package engine

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrPersistence  = errors.New("persistence failure")
	ErrLockTimeout  = errors.New("user lock timeout")
)

// IsRetryable reports whether err is a transient failure the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrLockTimeout)
}

// DeclineReason explains why a valid command did nothing. It is a normal
// outcome, not an error.
type DeclineReason string

const (
	DeclineNone             DeclineReason = ""
	DeclineInsufficientGems DeclineReason = "insufficient_gems"
	DeclineFreezeActive     DeclineReason = "freeze_active"
	DeclineAlreadyCompleted DeclineReason = "already_completed"
	DeclineMissionNotFound  DeclineReason = "mission_not_found"
	DeclineSameDay          DeclineReason = "same_day"
)
