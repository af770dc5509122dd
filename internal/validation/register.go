package validation

import (
	"strings"

	"github.com/carelink/carelink-be/internal/apperr"
	"github.com/carelink/carelink-be/internal/models/dto"
)

const (
	maxUsernameLen = 150
	maxUserNameLen = 150
)

// Registration is a checked and normalized registration request.
type Registration struct {
	Username string
	Email    string
	Name     string
	Password string
}

// Register checks a registration payload. Password failures match
// apperr.ErrWeakPassword; a confirmation that differs matches
// apperr.ErrPasswordMismatch.
func Register(req dto.RegisterRequest, policy PasswordPolicy) (Registration, error) {
	reg := Registration{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Name:     SanitizeText(req.Name),
		Password: req.Password,
	}

	var errs []error
	switch {
	case reg.Username == "":
		errs = append(errs, apperr.Invalid("username", requiredMsg))
	case tooLong(reg.Username, maxUsernameLen):
		errs = append(errs, apperr.Invalid("username", "Ensure this field has no more than 150 characters."))
	case !usernamePattern.MatchString(reg.Username):
		errs = append(errs, apperr.Invalid("username",
			"Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."))
	}

	if reg.Email != "" && !ValidEmail(reg.Email) {
		errs = append(errs, apperr.Invalid("email", invalidEmailMsg))
	}
	if tooLong(reg.Name, maxUserNameLen) {
		errs = append(errs, apperr.Invalid("name", "Ensure this field has no more than 150 characters."))
	}

	switch {
	case req.Password == "":
		errs = append(errs, apperr.Invalid("password", requiredMsg))
	case len([]rune(req.Password)) < MinPasswordLength:
		errs = append(errs, apperr.InvalidAs(apperr.ErrWeakPassword, "password",
			"Ensure this field has at least 8 characters."))
	default:
		if err := policy.Check(req.Password, reg.Username, reg.Email, reg.Name); err != nil {
			errs = append(errs, apperr.InvalidAs(apperr.ErrWeakPassword, "password", err.Error()))
		}
	}

	if req.PasswordConfirm != nil && *req.PasswordConfirm != req.Password {
		errs = append(errs, apperr.InvalidAs(apperr.ErrPasswordMismatch, "password_confirm", "Passwords don't match."))
	}

	if len(errs) > 0 {
		return Registration{}, join(errs)
	}
	return reg, nil
}
