package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/carelink-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// Field names reported by ConflictError and ReferenceError.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPair     = "patient_doctor"
	FieldPatient  = "patient"
	FieldDoctor   = "doctor"
	FieldOwner    = "created_by"
)

// ConflictError is returned when a write violates a unique constraint. It
// matches ErrAlreadyExists.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAlreadyExists, e.Field)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ReferenceError is returned when a write points at a row that does not
// exist, e.g. a mapping whose doctor was deleted concurrently. It matches
// ErrNotFound.
type ReferenceError struct {
	Field string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotFound, e.Field)
}

func (e *ReferenceError) Is(target error) bool {
	return target == ErrNotFound
}

// UserStore is the identity store.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
}

// PatientStore persists patients. Methods taking an owner only see that
// owner's rows; GetPatient is unscoped and exists for mutation checks.
type PatientStore interface {
	CreatePatient(ctx context.Context, p models.Patient) (models.Patient, error)
	GetPatient(ctx context.Context, id int64) (models.Patient, error)
	GetOwnedPatient(ctx context.Context, owner, id int64) (models.Patient, error)
	ListOwnedPatients(ctx context.Context, owner int64) ([]models.Patient, error)
	UpdatePatient(ctx context.Context, p models.Patient) (models.Patient, error)
	DeletePatient(ctx context.Context, id int64) error
	PatientEmailExists(ctx context.Context, email string, exceptID int64) (bool, error)
}

// DoctorStore persists doctors.
type DoctorStore interface {
	CreateDoctor(ctx context.Context, d models.Doctor) (models.Doctor, error)
	GetDoctor(ctx context.Context, id int64) (models.Doctor, error)
	ListDoctors(ctx context.Context) ([]models.Doctor, error)
	UpdateDoctor(ctx context.Context, d models.Doctor) (models.Doctor, error)
	DeleteDoctor(ctx context.Context, id int64) error
	DoctorEmailExists(ctx context.Context, email string, exceptID int64) (bool, error)
}

// MappingStore persists patient-doctor links. Owned queries join through the
// patient's created_by.
type MappingStore interface {
	CreateMapping(ctx context.Context, m models.PatientDoctorMap) (models.PatientDoctorMap, error)
	GetMapping(ctx context.Context, id int64) (models.PatientDoctorMap, error)
	GetOwnedMapping(ctx context.Context, owner, id int64) (models.MappingDetail, error)
	ListOwnedMappings(ctx context.Context, owner int64) ([]models.MappingDetail, error)
	ListOwnedMappingsByPatient(ctx context.Context, owner, patientID int64) ([]models.MappingDetail, error)
	UpdateMapping(ctx context.Context, m models.PatientDoctorMap) (models.PatientDoctorMap, error)
	DeleteMapping(ctx context.Context, id int64) error
	MappingExists(ctx context.Context, patientID, doctorID, exceptID int64) (bool, error)
}

// RecordStore is the full clinical record store.
type RecordStore interface {
	PatientStore
	DoctorStore
	MappingStore
}

// CounterCache is a shared key/value cache of integer counters with expiry.
type CounterCache interface {
	Get(ctx context.Context, key string) (int, error)
	Set(ctx context.Context, key string, value int, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Incrementer is implemented by caches that can bump a counter atomically.
// A new counter starts at 1 and expires after ttl; existing counters keep
// their expiry.
type Incrementer interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int, error)
}
