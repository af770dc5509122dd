package records

import (
	"context"

	"github.com/carelink/carelink-be/internal/auth"
	"github.com/carelink/carelink-be/internal/authz"
	"github.com/carelink/carelink-be/internal/models"
	"github.com/carelink/carelink-be/internal/models/dto"
	"github.com/carelink/carelink-be/internal/validation"
)

func (s *Service) patientEmails() validation.EmailChecker {
	return validation.EmailCheckerFunc(s.store.PatientEmailExists)
}

// CreatePatient stores a new patient owned by caller.
func (s *Service) CreatePatient(ctx context.Context, caller auth.Caller, in dto.PatientInput) (models.Patient, error) {
	if err := authorize(caller, authz.Create, authz.Patient(0)); err != nil {
		return models.Patient{}, err
	}
	p, err := validation.Patient(ctx, s.patientEmails(), models.Patient{}, in, false)
	if err != nil {
		return models.Patient{}, err
	}
	p.CreatedBy = caller.UserID
	created, err := s.store.CreatePatient(ctx, p)
	if err != nil {
		return models.Patient{}, translateEmail("create patient", validation.PatientEmailTaken, err)
	}
	return created, nil
}

// ListPatients returns the caller's patients.
func (s *Service) ListPatients(ctx context.Context, caller auth.Caller) ([]models.Patient, error) {
	patients, err := s.store.ListOwnedPatients(ctx, caller.UserID)
	if err != nil {
		return nil, translate("list patients", err)
	}
	return patients, nil
}

// GetPatient returns one of the caller's patients. Patients owned by
// someone else are reported as not found.
func (s *Service) GetPatient(ctx context.Context, caller auth.Caller, id int64) (models.Patient, error) {
	p, err := s.store.GetOwnedPatient(ctx, caller.UserID, id)
	if err != nil {
		return models.Patient{}, translate("get patient", err)
	}
	return p, nil
}

// UpdatePatient applies in to the patient. partial selects PATCH semantics.
func (s *Service) UpdatePatient(ctx context.Context, caller auth.Caller, id int64, in dto.PatientInput, partial bool) (models.Patient, error) {
	current, err := s.ownedForMutation(ctx, caller, authz.Update, id)
	if err != nil {
		return models.Patient{}, err
	}
	next, err := validation.Patient(ctx, s.patientEmails(), current, in, partial)
	if err != nil {
		return models.Patient{}, err
	}
	updated, err := s.store.UpdatePatient(ctx, next)
	if err != nil {
		return models.Patient{}, translateEmail("update patient", validation.PatientEmailTaken, err)
	}
	return updated, nil
}

// DeletePatient removes the patient and its mappings.
func (s *Service) DeletePatient(ctx context.Context, caller auth.Caller, id int64) error {
	if _, err := s.ownedForMutation(ctx, caller, authz.Delete, id); err != nil {
		return err
	}
	return translate("delete patient", s.store.DeletePatient(ctx, id))
}

func (s *Service) ownedForMutation(ctx context.Context, caller auth.Caller, op authz.Operation, id int64) (models.Patient, error) {
	p, err := s.store.GetPatient(ctx, id)
	if err != nil {
		return models.Patient{}, translate("load patient", err)
	}
	if err := authorize(caller, op, authz.Patient(p.CreatedBy)); err != nil {
		return models.Patient{}, err
	}
	return p, nil
}
