package utils

import (
	"errors"
	"fmt"
)

// ErrStructural marks construction-time input failures. Callers distinguish
// these (cannot calculate) from validation issues (calculated anyway).
var ErrStructural = errors.New("structural input error")

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// NewStructuralError wraps err so that errors.Is(_, ErrStructural) holds.
func NewStructuralError(op string, err error) error {
	return &AppError{Op: op, Msg: "invalid input", Err: fmt.Errorf("%w: %w", ErrStructural, err)}
}
