package validation

import (
	"context"
	"strings"

	"github.com/carelink/carelink-be/internal/apperr"
	"github.com/carelink/carelink-be/internal/models"
	"github.com/carelink/carelink-be/internal/models/dto"
)

// Doctor applies in on top of base. Without partial, first_name, email and
// specialization are required.
func Doctor(ctx context.Context, emails EmailChecker, base models.Doctor, in dto.DoctorInput, partial bool) (models.Doctor, error) {
	out := base
	var errs []error

	if !partial {
		required := []struct {
			field string
			value *string
		}{
			{"first_name", in.FirstName},
			{"email", in.Email},
			{"specialization", in.Specialization},
		}
		for _, r := range required {
			if r.value == nil {
				errs = append(errs, apperr.Invalid(r.field, requiredMsg))
			}
		}
	}

	if in.FirstName != nil {
		out.FirstName = SanitizeText(*in.FirstName)
		if err := checkName("first_name", out.FirstName, true); err != nil {
			errs = append(errs, err)
		}
	}
	if in.LastName != nil {
		out.LastName = SanitizeText(*in.LastName)
		if err := checkName("last_name", out.LastName, false); err != nil {
			errs = append(errs, err)
		}
	}

	if in.Specialization != nil {
		out.Specialization = strings.TrimSpace(*in.Specialization)
		n := len([]rune(out.Specialization))
		switch {
		case n > maxSpecializationLen:
			errs = append(errs, apperr.InvalidAs(apperr.ErrInvalidSpecialization, "specialization",
				"Ensure this field has no more than 120 characters."))
		case n < minSpecializationLen:
			errs = append(errs, apperr.InvalidAs(apperr.ErrInvalidSpecialization, "specialization",
				"Specialization must be at least 3 characters long."))
		}
	}

	if in.Email != nil {
		out.Email = strings.TrimSpace(*in.Email)
		if err := checkEmail(out.Email); err != nil {
			errs = append(errs, err)
		} else {
			taken, err := emails.EmailExists(ctx, out.Email, base.ID)
			if err != nil {
				return models.Doctor{}, err
			}
			if taken {
				errs = append(errs, apperr.InvalidAs(apperr.ErrDuplicateEmail, "email", DoctorEmailTaken))
			}
		}
	}

	if len(errs) > 0 {
		return models.Doctor{}, join(errs)
	}
	return out, nil
}
