// Package validation normalizes and checks client input before it reaches
// the stores. Failures are *apperr.ValidationError values joined with
// errors.Join so every rejected field is reported at once.
package validation

import (
	"context"
	"errors"

	"github.com/carelink/carelink-be/internal/apperr"
	"github.com/carelink/carelink-be/internal/models"
)

const (
	maxNameLen           = 100
	maxEmailLen          = 254
	maxPhoneLen          = 20
	minPhoneLen          = 10
	maxSpecializationLen = 120
	minSpecializationLen = 3

	dateLayout = models.DateLayout
)

const (
	requiredMsg     = "This field is required."
	blankMsg        = "This field may not be blank."
	invalidEmailMsg = "Enter a valid email address."
)

// Messages for an email already used by another record.
const (
	PatientEmailTaken = "A patient with this email already exists."
	DoctorEmailTaken  = "A doctor with this email already exists."
)

// EmailChecker reports whether an email is already used by a record other
// than exceptID. Pass 0 when creating.
type EmailChecker interface {
	EmailExists(ctx context.Context, email string, exceptID int64) (bool, error)
}

// EmailCheckerFunc adapts a store method to EmailChecker.
type EmailCheckerFunc func(ctx context.Context, email string, exceptID int64) (bool, error)

func (f EmailCheckerFunc) EmailExists(ctx context.Context, email string, exceptID int64) (bool, error) {
	return f(ctx, email, exceptID)
}

func join(errs []error) error {
	return errors.Join(errs...)
}

// FieldErrors flattens a validation failure into field → reason. The first
// reason reported for a field wins.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	collect(err, out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func collect(err error, out map[string]string) {
	switch e := err.(type) {
	case nil:
	case *apperr.ValidationError:
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Reason
		}
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			collect(inner, out)
		}
	case interface{ Unwrap() error }:
		collect(e.Unwrap(), out)
	}
}
