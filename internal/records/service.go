// Package records implements patient, doctor and mapping operations for an
// authenticated caller. Every operation validates input and checks ownership
// before it touches the store.
package records

import (
	"errors"
	"fmt"

	"github.com/carelink/carelink-be/internal/apperr"
	"github.com/carelink/carelink-be/internal/auth"
	"github.com/carelink/carelink-be/internal/authz"
	"github.com/carelink/carelink-be/internal/storage"
)

// Service exposes the clinical record operations.
type Service struct {
	store storage.RecordStore
}

func NewService(store storage.RecordStore) *Service {
	return &Service{store: store}
}

func authorize(caller auth.Caller, op authz.Operation, target authz.Target) error {
	if d := authz.Authorize(caller, op, target); !d.Allowed {
		return apperr.Forbidden(d.Reason)
	}
	return nil
}

// translate maps storage errors onto the error kinds clients see.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.ErrNotFound
	}
	var conflict *storage.ConflictError
	if errors.As(err, &conflict) {
		switch conflict.Field {
		case storage.FieldPair:
			return duplicateMapping()
		case storage.FieldEmail:
			return apperr.InvalidAs(apperr.ErrDuplicateEmail, "email", "A record with this email already exists.")
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// translateEmail is translate for patient and doctor writes, which report a
// lost email race with the same message as the pre-check.
func translateEmail(op, taken string, err error) error {
	var conflict *storage.ConflictError
	if errors.As(err, &conflict) && conflict.Field == storage.FieldEmail {
		return apperr.InvalidAs(apperr.ErrDuplicateEmail, "email", taken)
	}
	return translate(op, err)
}

func duplicateMapping() error {
	return apperr.InvalidAs(apperr.ErrDuplicateMapping, "non_field_errors",
		"This patient is already mapped to this doctor.")
}
