package transformation

import (
	"github.com/pkg/errors"
)

// SkippedError marks a record-level error. The record is dropped and recorded
// instead of failing the task.
type SkippedError struct {
	Err error
}

func (s *SkippedError) Error() string {
	return "skipped: " + s.Err.Error()
}

func (s *SkippedError) Unwrap() error {
	return s.Err
}

// Skip marks err as a skippable record error.
func Skip(err error) error {
	if err == nil {
		return nil
	}
	return &SkippedError{Err: err}
}

// IsSkipped returns the skipped error if err is or wraps one.
func IsSkipped(err error) (*SkippedError, bool) {
	var s *SkippedError
	if errors.As(err, &s) {
		return s, true
	}
	return nil, false
}
