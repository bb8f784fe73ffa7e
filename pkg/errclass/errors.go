// Package errclass defines the stable, machine-readable error classes
// returned by fileguard.
package errclass

import "fmt"

// GuardError is a stable, machine-readable error class.
// Err, when set, is the underlying cause and is reachable via errors.Is/As.
type GuardError struct {
	Code    string
	Message string
	Err     error
}

func (e *GuardError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *GuardError) Is(target error) bool {
	t, ok := target.(*GuardError)
	return ok && e.Code == t.Code
}

func (e *GuardError) Unwrap() error {
	return e.Err
}

// WithMessage returns a new GuardError with the same Code but a specific message.
func (e *GuardError) WithMessage(msg string) *GuardError {
	return &GuardError{Code: e.Code, Message: msg}
}

// WithMessagef returns a new GuardError with a formatted message.
func (e *GuardError) WithMessagef(format string, args ...any) *GuardError {
	return &GuardError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a new GuardError with the same Code carrying cause.
func (e *GuardError) Wrap(cause error) *GuardError {
	return &GuardError{Code: e.Code, Err: cause}
}

// Wrapf returns a new GuardError with a formatted message carrying cause.
func (e *GuardError) Wrapf(cause error, format string, args ...any) *GuardError {
	return &GuardError{Code: e.Code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// CodeOf returns the code of the outermost GuardError in err's chain, or "".
func CodeOf(err error) string {
	for err != nil {
		if ge, ok := err.(*GuardError); ok {
			return ge.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// All stable error classes.
var (
	ErrNotFound         = &GuardError{Code: "E_NOT_FOUND"}
	ErrStackUnderflow   = &GuardError{Code: "E_STACK_UNDERFLOW"}
	ErrIOFailure        = &GuardError{Code: "E_IO_FAILURE"}
	ErrOperationFailure = &GuardError{Code: "E_OPERATION_FAILED"}
	ErrHandleConsumed   = &GuardError{Code: "E_HANDLE_CONSUMED"}
	ErrSessionActive    = &GuardError{Code: "E_SESSION_ACTIVE"}
	ErrSessionSpent     = &GuardError{Code: "E_SESSION_SPENT"}
	ErrPathInvalid      = &GuardError{Code: "E_PATH_INVALID"}
	ErrVerifyMismatch   = &GuardError{Code: "E_VERIFY_MISMATCH"}
	ErrConfigInvalid    = &GuardError{Code: "E_CONFIG_INVALID"}
	ErrLockConflict     = &GuardError{Code: "E_LOCK_CONFLICT"}
	ErrLockNotHeld      = &GuardError{Code: "E_LOCK_NOT_HELD"}
)
