package domain

import "errors"

// Machine-readable error codes exposed on failed jobs. A failed job carries
// one of these plus a short sanitized message, never raw provider output.
const (
	CodeInvalidTransition  = "invalid_transition"
	CodeUnknownJobType     = "unknown_job_type"
	CodeSkillExecution     = "skill_execution_error"
	CodeSkillTimeout       = "skill_timeout"
	CodeAllProvidersFailed = "all_providers_failed"
	CodeCancelled          = "cancelled"
)

var (
	// ErrJobNotFound is returned when a job id does not exist in the store.
	ErrJobNotFound = errors.New("job not found")

	// ErrNoJobAvailable signals an empty pending queue to the worker.
	ErrNoJobAvailable = errors.New("no pending job available")

	// ErrInvalidTransition is returned when a lifecycle write is attempted
	// from a disallowed source state. The record is left unchanged.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrUnknownJobType is returned when no skill is registered for a
	// job's type.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrSkillTimeout is returned when a skill exceeds its wall-clock budget.
	ErrSkillTimeout = errors.New("skill execution timed out")
)

// SkillError wraps an underlying skill failure with a message safe to expose
// on the job record.
type SkillError struct {
	Message string
	Err     error
}

func (e *SkillError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *SkillError) Unwrap() error {
	return e.Err
}

// NewSkillError creates a SkillError with a sanitized message.
func NewSkillError(message string, err error) error {
	return &SkillError{Message: message, Err: err}
}
