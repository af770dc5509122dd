package records

import (
	"context"

	"github.com/carelink/carelink-be/internal/auth"
	"github.com/carelink/carelink-be/internal/authz"
	"github.com/carelink/carelink-be/internal/models"
	"github.com/carelink/carelink-be/internal/models/dto"
	"github.com/carelink/carelink-be/internal/validation"
)

func (s *Service) doctorEmails() validation.EmailChecker {
	return validation.EmailCheckerFunc(s.store.DoctorEmailExists)
}

func (s *Service) CreateDoctor(ctx context.Context, caller auth.Caller, in dto.DoctorInput) (models.Doctor, error) {
	if err := authorize(caller, authz.Create, authz.Doctor()); err != nil {
		return models.Doctor{}, err
	}
	d, err := validation.Doctor(ctx, s.doctorEmails(), models.Doctor{}, in, false)
	if err != nil {
		return models.Doctor{}, err
	}
	created, err := s.store.CreateDoctor(ctx, d)
	if err != nil {
		return models.Doctor{}, translateEmail("create doctor", validation.DoctorEmailTaken, err)
	}
	return created, nil
}

func (s *Service) ListDoctors(ctx context.Context, caller auth.Caller) ([]models.Doctor, error) {
	if err := authorize(caller, authz.Read, authz.Doctor()); err != nil {
		return nil, err
	}
	doctors, err := s.store.ListDoctors(ctx)
	if err != nil {
		return nil, translate("list doctors", err)
	}
	return doctors, nil
}

func (s *Service) GetDoctor(ctx context.Context, caller auth.Caller, id int64) (models.Doctor, error) {
	if err := authorize(caller, authz.Read, authz.Doctor()); err != nil {
		return models.Doctor{}, err
	}
	d, err := s.store.GetDoctor(ctx, id)
	if err != nil {
		return models.Doctor{}, translate("get doctor", err)
	}
	return d, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, caller auth.Caller, id int64, in dto.DoctorInput, partial bool) (models.Doctor, error) {
	if err := authorize(caller, authz.Update, authz.Doctor()); err != nil {
		return models.Doctor{}, err
	}
	current, err := s.store.GetDoctor(ctx, id)
	if err != nil {
		return models.Doctor{}, translate("load doctor", err)
	}
	next, err := validation.Doctor(ctx, s.doctorEmails(), current, in, partial)
	if err != nil {
		return models.Doctor{}, err
	}
	updated, err := s.store.UpdateDoctor(ctx, next)
	if err != nil {
		return models.Doctor{}, translateEmail("update doctor", validation.DoctorEmailTaken, err)
	}
	return updated, nil
}

// DeleteDoctor removes the doctor together with every mapping to it.
func (s *Service) DeleteDoctor(ctx context.Context, caller auth.Caller, id int64) error {
	if err := authorize(caller, authz.Delete, authz.Doctor()); err != nil {
		return err
	}
	return translate("delete doctor", s.store.DeleteDoctor(ctx, id))
}
