package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an error raised while executing compiled component code.
//
// Runtime errors include:
//   - Quota exceeded: one update ran more effects than allowed
//   - Not callable: code called a value that is not a function
//   - Unsupported: code used a construct the simulator does not model
//   - Thrown: code threw a value that nothing caught
//   - No component: the module has no registered default export
//   - No target: an emitted event matched no handling element
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Step is the logical clock value of the update being processed, or 0
	// during load and mount.
	Step int64

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates an update ran more effects than the
	// per-step quota allows, usually an effect that feeds itself.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeNotCallable indicates a call to a value that is not a function.
	ErrCodeNotCallable RuntimeErrorCode = "NOT_CALLABLE"

	// ErrCodeUnsupported indicates syntax or a value the simulator cannot run.
	ErrCodeUnsupported RuntimeErrorCode = "UNSUPPORTED"

	// ErrCodeThrown indicates an uncaught throw, or an operation that throws
	// a TypeError in a real runtime.
	ErrCodeThrown RuntimeErrorCode = "THROWN"

	// ErrCodeNoComponent indicates the module registered no component.
	ErrCodeNoComponent RuntimeErrorCode = "NO_COMPONENT"

	// ErrCodeNoTarget indicates an event was emitted at an element that
	// does not exist or does not handle it.
	ErrCodeNoTarget RuntimeErrorCode = "NO_TARGET"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Step > 0 {
		return fmt.Sprintf("%s: %s (step=%d)", e.Code, e.Message, e.Step)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	return HasCode(err, ErrCodeQuotaExceeded)
}

// HasCode reports whether err is or wraps a RuntimeError with code.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(step int64, runs, maxRuns int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("update ran too many effects (%d > %d)", runs, maxRuns),
		Step:    step,
		Details: map[string]string{
			"runs":     fmt.Sprintf("%d", runs),
			"max_runs": fmt.Sprintf("%d", maxRuns),
		},
	}
}

func notCallable(what string) *RuntimeError {
	return &RuntimeError{Code: ErrCodeNotCallable, Message: what + " is not a function"}
}

func unsupported(format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: ErrCodeUnsupported, Message: fmt.Sprintf(format, args...)}
}

func typeError(format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: ErrCodeThrown, Message: "TypeError: " + fmt.Sprintf(format, args...)}
}

// thrown carries a value raised by a throw statement until a catch clause
// or the engine boundary handles it.
type thrown struct {
	value Value
}

func (t *thrown) Error() string {
	return "uncaught " + errorText(t.value)
}

// boundary converts errors escaping user code into RuntimeErrors stamped
// with the current step.
func boundary(err error, step int64) error {
	if err == nil {
		return nil
	}
	var th *thrown
	if errors.As(err, &th) {
		return &RuntimeError{Code: ErrCodeThrown, Message: th.Error(), Step: step}
	}
	var re *RuntimeError
	if errors.As(err, &re) && re.Step == 0 {
		re.Step = step
	}
	return err
}
