package models

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire format of date_of_birth.
const DateLayout = "2006-01-02"

// Patient is a clinical record owned by the user that created it.
type Patient struct {
	ID          int64      `json:"id"`
	CreatedBy   int64      `json:"-"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Phone       string     `json:"phone"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MarshalJSON writes date_of_birth as a plain date.
func (p Patient) MarshalJSON() ([]byte, error) {
	type plain Patient
	out := struct {
		plain
		DateOfBirth *string `json:"date_of_birth"`
	}{plain: plain(p)}
	if p.DateOfBirth != nil {
		s := p.DateOfBirth.Format(DateLayout)
		out.DateOfBirth = &s
	}
	return json.Marshal(out)
}
