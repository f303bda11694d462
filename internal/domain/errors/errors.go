// File: internal/domain/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors, grouped by the API error taxonomy. The HTTP layer maps
// each kind to a status code; anything unclassified is treated as internal
// and its message is not sent to the client.
var (
	// General
	ErrInternal   = errors.New("internal server error")
	ErrValidation = errors.New("request validation failed")
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("resource not found")

	ErrUnauthorized = errors.New("unauthorized")
	ErrNoPermission = errors.New("no permission to perform this action")

	// Second factors
	ErrFactorNotFound       = errors.New("second factor not found")
	ErrUnknownFactorType    = errors.New("unknown second factor type")
	ErrFactorNotActive      = errors.New("factor is not active; cannot be used to log you in")
	ErrInvalidProof         = errors.New("factor secret is invalid")
	ErrFactorCountReached   = errors.New("you cannot add any more factors")
	ErrMinimumCountRequired = errors.New("cannot delete this second factor - you would not have enough")
	ErrLockOut              = errors.New("cannot disable the only active factor")
	ErrIllegalTransition    = errors.New("illegal status transition")
	ErrSecondFactorNotDue   = errors.New("you do not need to validate a second factor at this time")
)

// AppError is an application error with a user-facing message and an API
// error code. Wraps the original error for errors.Is/As.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

// Validation wraps a message as a caller-correctable validation error.
func Validation(message string) error {
	return fmt.Errorf("%w: %s", ErrValidation, message)
}

// BadRequest wraps a message as an illegal-state / wrong-format error.
func BadRequest(message string) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, message)
}

// IsValidation reports whether err is a malformed-input error the caller
// should fix.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnknownFactorType)
}

// IsBadRequest reports whether err is an illegal state transition, wrong
// proof format, lock-out attempt or not-active factor.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrFactorNotActive) ||
		errors.Is(err, ErrMinimumCountRequired) ||
		errors.Is(err, ErrLockOut) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrSecondFactorNotDue)
}

// IsUnauthorized reports whether err means a wrong proof value in a login
// context.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidProof)
}

// IsNoPermission reports whether err means acting on another user's
// factors or hitting the factor cap.
func IsNoPermission(err error) bool {
	return errors.Is(err, ErrNoPermission) ||
		errors.Is(err, ErrFactorCountReached)
}

// IsNotFound reports whether err is a missing-resource error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrFactorNotFound)
}
