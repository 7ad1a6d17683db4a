package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorValidation      ErrorCode = "VALIDATION_ERROR"
	ErrorNicknameTaken   ErrorCode = "NICKNAME_TAKEN"
	ErrorUnauthenticated ErrorCode = "UNAUTHENTICATED"
	ErrorInfrastructure  ErrorCode = "INFRASTRUCTURE_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// connectionGoner is implemented by push errors that mean the target
// session no longer exists, as opposed to the gateway being unavailable.
type connectionGoner interface {
	ConnectionGone() bool
}

func isGone(err error) bool {
	var gone connectionGoner
	return errors.As(err, &gone) && gone.ConnectionGone()
}
