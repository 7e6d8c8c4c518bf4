package sim

import (
	"errors"
	"fmt"

	"github.com/roach88/convoy/internal/model"
)

// RuntimeError is a failure of the runtime itself, never of the
// negotiation. Infeasible deliveries are reason codes, not errors.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string
	ActorID string
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidActor: empty id or role at registration.
	ErrCodeInvalidActor RuntimeErrorCode = "INVALID_ACTOR"

	// ErrCodeDuplicateActor: two actors share an id.
	ErrCodeDuplicateActor RuntimeErrorCode = "DUPLICATE_ACTOR"

	// ErrCodeQuotaExceeded: too many cycles without the clock advancing.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeRecorder: the trace recorder failed.
	ErrCodeRecorder RuntimeErrorCode = "RECORDER_FAILED"
)

func (e *RuntimeError) Error() string {
	if e.ActorID != "" {
		return fmt.Sprintf("%s: %s (actor=%s)", e.Code, e.Message, e.ActorID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewQuotaError wraps a StepsExceededError as a RuntimeError.
func NewQuotaError(at model.TimeOfDay, steps, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("no time progress after %d cycles at %s (limit %d)", steps, at, limit),
		Details: map[string]string{
			"at":    at.String(),
			"steps": fmt.Sprintf("%d", steps),
			"limit": fmt.Sprintf("%d", limit),
		},
	}
}

// IsQuotaError reports whether err is a quota failure of either type.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsDuplicateActor reports whether err is a duplicate registration.
func IsDuplicateActor(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeDuplicateActor
}
