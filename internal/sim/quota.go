package sim

import (
	"errors"
	"fmt"

	"github.com/roach88/convoy/internal/model"
)

// DefaultMaxCyclesPerInstant bounds how many scheduler cycles may run
// without the virtual clock moving. Every legitimate cascade (CFP, bids,
// accept, notices) settles in a handful of cycles; hitting the limit means
// two actors are ping-ponging forever.
const DefaultMaxCyclesPerInstant = 10000

// QuotaEnforcer counts cycles at one simulated instant.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates an enforcer allowing maxSteps cycles.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one cycle at instant at.
func (q *QuotaEnforcer) Check(at model.TimeOfDay) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{At: at, Steps: q.current, Limit: q.maxSteps}
	}
	return nil
}

// Reset is called whenever the clock advances.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the cycle count at the current instant.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError aborts a run stuck at one instant.
type StepsExceededError struct {
	At    model.TimeOfDay
	Steps int
	Limit int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("simulation stuck at %s: %d cycles > %d limit", e.At, e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err wraps a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
