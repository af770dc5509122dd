package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/carelink/carelink-be/internal/apperr"
	"github.com/carelink/carelink-be/internal/auth"
	"github.com/carelink/carelink-be/internal/authz"
	"github.com/carelink/carelink-be/internal/models"
	"github.com/carelink/carelink-be/internal/models/dto"
	"github.com/carelink/carelink-be/internal/storage"
)

// CreateMapping links one of the caller's patients to a doctor.
func (s *Service) CreateMapping(ctx context.Context, caller auth.Caller, in dto.MappingInput) (models.MappingDetail, error) {
	var errs []error
	if in.Patient == nil {
		errs = append(errs, apperr.Invalid("patient", "This field is required."))
	}
	if in.Doctor == nil {
		errs = append(errs, apperr.Invalid("doctor", "This field is required."))
	}
	if len(errs) > 0 {
		return models.MappingDetail{}, errors.Join(errs...)
	}

	patient, doctor, err := s.mappingRefs(ctx, *in.Patient, *in.Doctor)
	if err != nil {
		return models.MappingDetail{}, err
	}
	if err := authorize(caller, authz.Create, authz.Mapping(patient.CreatedBy)); err != nil {
		return models.MappingDetail{}, err
	}
	if err := s.ensureUnmapped(ctx, patient.ID, doctor.ID, 0); err != nil {
		return models.MappingDetail{}, err
	}

	m := models.PatientDoctorMap{PatientID: patient.ID, DoctorID: doctor.ID}
	created, err := s.store.CreateMapping(ctx, m)
	if err != nil {
		return models.MappingDetail{}, mappingWriteError("create mapping", m, err)
	}
	return models.MappingDetail{PatientDoctorMap: created, Patient: patient, Doctor: doctor}, nil
}

// ListMappings returns every mapping whose patient the caller owns.
func (s *Service) ListMappings(ctx context.Context, caller auth.Caller) ([]models.MappingDetail, error) {
	out, err := s.store.ListOwnedMappings(ctx, caller.UserID)
	if err != nil {
		return nil, translate("list mappings", err)
	}
	return out, nil
}

// ListPatientMappings returns the doctors assigned to one of the caller's
// patients.
func (s *Service) ListPatientMappings(ctx context.Context, caller auth.Caller, patientID int64) ([]models.MappingDetail, error) {
	if _, err := s.store.GetOwnedPatient(ctx, caller.UserID, patientID); err != nil {
		return nil, translate("get patient", err)
	}
	out, err := s.store.ListOwnedMappingsByPatient(ctx, caller.UserID, patientID)
	if err != nil {
		return nil, translate("list patient mappings", err)
	}
	return out, nil
}

func (s *Service) GetMapping(ctx context.Context, caller auth.Caller, id int64) (models.MappingDetail, error) {
	m, err := s.store.GetOwnedMapping(ctx, caller.UserID, id)
	if err != nil {
		return models.MappingDetail{}, translate("get mapping", err)
	}
	return m, nil
}

// UpdateMapping re-points a mapping. Moving it to another patient needs
// ownership of both patients.
func (s *Service) UpdateMapping(ctx context.Context, caller auth.Caller, id int64, in dto.MappingInput, partial bool) (models.MappingDetail, error) {
	current, err := s.mappingForMutation(ctx, caller, authz.Update, id)
	if err != nil {
		return models.MappingDetail{}, err
	}

	if !partial {
		var errs []error
		if in.Patient == nil {
			errs = append(errs, apperr.Invalid("patient", "This field is required."))
		}
		if in.Doctor == nil {
			errs = append(errs, apperr.Invalid("doctor", "This field is required."))
		}
		if len(errs) > 0 {
			return models.MappingDetail{}, errors.Join(errs...)
		}
	}

	next := current
	if in.Patient != nil {
		next.PatientID = *in.Patient
	}
	if in.Doctor != nil {
		next.DoctorID = *in.Doctor
	}

	patient, doctor, err := s.mappingRefs(ctx, next.PatientID, next.DoctorID)
	if err != nil {
		return models.MappingDetail{}, err
	}
	if patient.ID != current.PatientID {
		if err := authorize(caller, authz.Update, authz.Mapping(patient.CreatedBy)); err != nil {
			return models.MappingDetail{}, err
		}
	}
	if err := s.ensureUnmapped(ctx, patient.ID, doctor.ID, current.ID); err != nil {
		return models.MappingDetail{}, err
	}

	updated, err := s.store.UpdateMapping(ctx, next)
	if err != nil {
		return models.MappingDetail{}, mappingWriteError("update mapping", next, err)
	}
	return models.MappingDetail{PatientDoctorMap: updated, Patient: patient, Doctor: doctor}, nil
}

func (s *Service) DeleteMapping(ctx context.Context, caller auth.Caller, id int64) error {
	if _, err := s.mappingForMutation(ctx, caller, authz.Delete, id); err != nil {
		return err
	}
	return translate("delete mapping", s.store.DeleteMapping(ctx, id))
}

// mappingForMutation loads a mapping and checks the caller owns its patient
// as it is stored now.
func (s *Service) mappingForMutation(ctx context.Context, caller auth.Caller, op authz.Operation, id int64) (models.PatientDoctorMap, error) {
	m, err := s.store.GetMapping(ctx, id)
	if err != nil {
		return models.PatientDoctorMap{}, translate("load mapping", err)
	}
	patient, err := s.store.GetPatient(ctx, m.PatientID)
	if err != nil {
		return models.PatientDoctorMap{}, translate("load mapping patient", err)
	}
	if err := authorize(caller, op, authz.Mapping(patient.CreatedBy)); err != nil {
		return models.PatientDoctorMap{}, err
	}
	return m, nil
}

// mappingRefs resolves both ends of a mapping. Missing records are input
// errors, not missing routes.
func (s *Service) mappingRefs(ctx context.Context, patientID, doctorID int64) (models.Patient, models.Doctor, error) {
	var errs []error
	patient, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return models.Patient{}, models.Doctor{}, fmt.Errorf("load patient: %w", err)
		}
		errs = append(errs, missingRef("patient", patientID))
	}
	doctor, err := s.store.GetDoctor(ctx, doctorID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return models.Patient{}, models.Doctor{}, fmt.Errorf("load doctor: %w", err)
		}
		errs = append(errs, missingRef("doctor", doctorID))
	}
	if len(errs) > 0 {
		return models.Patient{}, models.Doctor{}, errors.Join(errs...)
	}
	return patient, doctor, nil
}

func (s *Service) ensureUnmapped(ctx context.Context, patientID, doctorID, exceptID int64) error {
	exists, err := s.store.MappingExists(ctx, patientID, doctorID, exceptID)
	if err != nil {
		return fmt.Errorf("check mapping: %w", err)
	}
	if exists {
		return duplicateMapping()
	}
	return nil
}

// mappingWriteError reports a patient or doctor deleted between mappingRefs
// and the write the same way mappingRefs would have.
func mappingWriteError(op string, m models.PatientDoctorMap, err error) error {
	var ref *storage.ReferenceError
	if errors.As(err, &ref) {
		switch ref.Field {
		case storage.FieldPatient:
			return missingRef("patient", m.PatientID)
		case storage.FieldDoctor:
			return missingRef("doctor", m.DoctorID)
		}
	}
	return translate(op, err)
}

func missingRef(field string, id int64) error {
	return apperr.Invalid(field, fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
}
