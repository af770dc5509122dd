package validation

import (
	"context"
	"strings"
	"time"

	"github.com/carelink/carelink-be/internal/apperr"
	"github.com/carelink/carelink-be/internal/models"
	"github.com/carelink/carelink-be/internal/models/dto"
)

// Patient applies in on top of base and returns the result. With partial
// unset (create, PUT) first_name and email must be present; nil fields are
// otherwise left as they are on base. The email uniqueness check skips
// base.ID so a record can keep its own address.
func Patient(ctx context.Context, emails EmailChecker, base models.Patient, in dto.PatientInput, partial bool) (models.Patient, error) {
	out := base
	var errs []error

	if !partial {
		if in.FirstName == nil {
			errs = append(errs, apperr.Invalid("first_name", requiredMsg))
		}
		if in.Email == nil {
			errs = append(errs, apperr.Invalid("email", requiredMsg))
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

	if in.DateOfBirth != nil {
		raw := strings.TrimSpace(*in.DateOfBirth)
		if raw == "" {
			out.DateOfBirth = nil
		} else if dob, err := time.Parse(dateLayout, raw); err != nil {
			errs = append(errs, apperr.Invalid("date_of_birth",
				"Date has wrong format. Use one of these formats instead: YYYY-MM-DD."))
		} else {
			out.DateOfBirth = &dob
		}
	}

	if in.Phone != nil {
		out.Phone = strings.TrimSpace(*in.Phone)
		if err := checkPhone(out.Phone); err != nil {
			errs = append(errs, err)
		}
	}

	if in.Email != nil {
		out.Email = strings.TrimSpace(*in.Email)
		if err := checkEmail(out.Email); err != nil {
			errs = append(errs, err)
		} else {
			taken, err := emails.EmailExists(ctx, out.Email, base.ID)
			if err != nil {
				return models.Patient{}, err
			}
			if taken {
				errs = append(errs, apperr.InvalidAs(apperr.ErrDuplicateEmail, "email", PatientEmailTaken))
			}
		}
	}

	if len(errs) > 0 {
		return models.Patient{}, join(errs)
	}
	return out, nil
}

func checkName(field, value string, required bool) error {
	switch {
	case required && value == "":
		return apperr.Invalid(field, blankMsg)
	case tooLong(value, maxNameLen):
		return apperr.Invalid(field, "Ensure this field has no more than 100 characters.")
	}
	return nil
}

func checkEmail(email string) error {
	switch {
	case email == "":
		return apperr.Invalid("email", blankMsg)
	case tooLong(email, maxEmailLen):
		return apperr.Invalid("email", "Ensure this field has no more than 254 characters.")
	case !ValidEmail(email):
		return apperr.Invalid("email", invalidEmailMsg)
	}
	return nil
}

func checkPhone(phone string) error {
	n := len([]rune(phone))
	switch {
	case n > maxPhoneLen:
		return apperr.InvalidAs(apperr.ErrInvalidPhone, "phone", "Ensure this field has no more than 20 characters.")
	case n > 0 && n < minPhoneLen:
		return apperr.InvalidAs(apperr.ErrInvalidPhone, "phone", "Phone number must be at least 10 digits.")
	}
	return nil
}
