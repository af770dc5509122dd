package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nbutton23/zxcvbn-go"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// DefaultMinScore is the lowest zxcvbn score (0-4) DefaultPasswordPolicy
// accepts.
const DefaultMinScore = 2

// PasswordPolicy judges password strength. related holds user attributes
// (username, email, name) the password should not resemble.
type PasswordPolicy interface {
	Check(password string, related ...string) error
}

// DefaultPasswordPolicy rejects short and all-digit passwords, passwords
// built around a user attribute, and anything zxcvbn scores below MinScore.
type DefaultPasswordPolicy struct {
	MinLength int
	MinScore  int
}

func (p DefaultPasswordPolicy) Check(password string, related ...string) error {
	minLen := p.MinLength
	if minLen <= 0 {
		minLen = MinPasswordLength
	}
	minScore := p.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	if len([]rune(password)) < minLen {
		return fmt.Errorf("This password is too short. It must contain at least %d characters.", minLen)
	}
	if strings.Trim(password, "0123456789") == "" {
		return errors.New("This password is entirely numeric.")
	}
	lower := strings.ToLower(password)
	inputs := make([]string, 0, len(related))
	for _, attr := range related {
		if similar(lower, attr) {
			return errors.New("The password is too similar to your personal information.")
		}
		if attr = strings.TrimSpace(attr); attr != "" {
			inputs = append(inputs, attr)
		}
	}
	if zxcvbn.PasswordStrength(password, inputs).Score < minScore {
		return errors.New("This password is too common.")
	}
	return nil
}

// similar reports whether the password is built around attr. Email
// addresses are compared by their local part.
func similar(password, attr string) bool {
	attr = strings.ToLower(strings.TrimSpace(attr))
	if at := strings.IndexByte(attr, '@'); at >= 0 {
		attr = attr[:at]
	}
	if len(attr) < 3 {
		return false
	}
	if password == attr || strings.Contains(attr, password) {
		return true
	}
	// The attribute has to make up most of the password to count.
	return strings.Contains(password, attr) && len(attr)*10 >= len(password)*7
}
