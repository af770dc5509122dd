package models

import "time"

// PatientDoctorMap links one patient to one doctor. Who may change it is
// decided by the linked patient's owner.
type PatientDoctorMap struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patient"`
	DoctorID  int64     `json:"doctor"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// MappingDetail is a mapping joined with both ends, as returned to clients.
type MappingDetail struct {
	PatientDoctorMap
	Patient Patient `json:"patient_detail"`
	Doctor  Doctor  `json:"doctor_detail"`
}
