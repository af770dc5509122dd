// Package apperr defines the error kinds surfaced by the account and record
// services. Handlers classify them with errors.Is / errors.As.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrDuplicateMapping   = errors.New("this patient is already mapped to this doctor")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrRateLimited        = errors.New("too many attempts, please try again later")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrPasswordMismatch   = errors.New("passwords don't match")
	ErrUsernameTaken      = errors.New("a user with that username already exists")
	ErrEmailTaken         = errors.New("a user with that email already exists")
	ErrInvalidToken       = errors.New("token is invalid or expired")

	ErrInvalidPhone          = fmt.Errorf("%w: phone", ErrValidation)
	ErrInvalidSpecialization = fmt.Errorf("%w: specialization", ErrValidation)
)

// ValidationError reports a rejected field. Kind is the sentinel it unwraps
// to; it defaults to ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
	Kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	if e.Kind == nil {
		return ErrValidation
	}
	return e.Kind
}

// Invalid builds a generic field validation failure.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidAs builds a field validation failure that also matches kind.
func InvalidAs(kind error, field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Kind: kind}
}

// Forbidden wraps ErrForbidden with a human readable reason.
func Forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

// RateLimitError is returned when a client exhausted its attempts. It
// matches ErrRateLimited.
type RateLimitError struct {
	Operation  string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many %s attempts, please try again later", e.Operation)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
