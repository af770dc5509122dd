package dto

// PatientInput carries create and update fields. A nil field is left
// untouched on partial update and treated as empty on create.
type PatientInput struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Email       *string `json:"email"`
	DateOfBirth *string `json:"date_of_birth"`
	Phone       *string `json:"phone"`
}

type DoctorInput struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Email          *string `json:"email"`
	Specialization *string `json:"specialization"`
}

type MappingInput struct {
	Patient *int64 `json:"patient"`
	Doctor  *int64 `json:"doctor"`
}
