package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by stores when a key has never been saved.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable wraps persistence failures that block startup.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrPlayerNotFound is returned when a player acts before entering a name.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrInvalidName rejects empty player names.
	ErrInvalidName = errors.New("player name must not be empty")
	// ErrSubjectNotFound indicates the subject key is not in the catalog.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrSubjectLocked indicates a prerequisite has not been completed yet.
	ErrSubjectLocked = errors.New("subject is locked")
	// ErrEmptyAttempt refuses to start an attempt without questions.
	ErrEmptyAttempt = errors.New("attempt has no questions")
	// ErrAttemptNotFound is returned when the player has no live attempt.
	ErrAttemptNotFound = errors.New("no attempt in progress")
	// ErrAttemptInProgress is returned when a player starts a second attempt.
	ErrAttemptInProgress = errors.New("another attempt is already in progress")
	// ErrInvalidTransition rejects actions that do not fit the attempt state.
	ErrInvalidTransition = errors.New("action not allowed in current attempt state")
	// ErrLifelineUnavailable is returned when a lifeline was used or does not apply.
	ErrLifelineUnavailable = errors.New("lifeline unavailable")
	// ErrForbidden guards admin-only operations.
	ErrForbidden = errors.New("admin only")
	// ErrNoQuestionsGenerated is the non-fatal content-generation failure.
	ErrNoQuestionsGenerated = errors.New("no questions generated")
)

// ValidationError collects every problem found in a rejected edit.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "validation failed: " + e.Problems[0]
	}
	return "validation failed:\n  " + strings.Join(e.Problems, "\n  ")
}

// NewValidationError returns nil when there are no problems.
func NewValidationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
