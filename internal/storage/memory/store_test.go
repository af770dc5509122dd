package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/carelink/carelink-be/internal/models"
	"github.com/carelink/carelink-be/internal/storage"
)

func TestStore_UserConflicts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, models.User{Username: "alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Empty emails never collide.
	if _, err := s.CreateUser(ctx, models.User{Username: "bob"}); err != nil {
		t.Fatalf("create second user without email: %v", err)
	}

	_, err := s.CreateUser(ctx, models.User{Username: "alice"})
	var conflict *storage.ConflictError
	if !errors.As(err, &conflict) || conflict.Field != storage.FieldUsername {
		t.Fatalf("expected username conflict, got %v", err)
	}
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatal("conflict should match ErrAlreadyExists")
	}
}

func TestStore_PatientEmailUnique(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	p, err := s.CreatePatient(ctx, models.Patient{CreatedBy: 1, FirstName: "Bob", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreatePatient(ctx, models.Patient{CreatedBy: 2, FirstName: "Rob", Email: "bob@example.com"}); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// Email comparison is exact.
	if _, err := s.CreatePatient(ctx, models.Patient{CreatedBy: 2, FirstName: "Rob", Email: "BOB@example.com"}); err != nil {
		t.Fatalf("different case should be accepted: %v", err)
	}
	// Saving a patient with its own email is not a conflict.
	p.Phone = "5551234567"
	if _, err := s.UpdatePatient(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestStore_OwnedQueriesFilter(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	mine, _ := s.CreatePatient(ctx, models.Patient{CreatedBy: 1, FirstName: "Bob", Email: "bob@example.com"})
	theirs, _ := s.CreatePatient(ctx, models.Patient{CreatedBy: 2, FirstName: "Tom", Email: "tom@example.com"})
	doc, _ := s.CreateDoctor(ctx, models.Doctor{FirstName: "John", Email: "doc@example.com", Specialization: "Cardiology"})

	if _, err := s.GetOwnedPatient(ctx, 1, theirs.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for foreign patient, got %v", err)
	}
	list, _ := s.ListOwnedPatients(ctx, 1)
	if len(list) != 1 || list[0].ID != mine.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	m, err := s.CreateMapping(ctx, models.PatientDoctorMap{PatientID: theirs.ID, DoctorID: doc.ID})
	if err != nil {
		t.Fatalf("create mapping: %v", err)
	}
	if _, err := s.GetOwnedMapping(ctx, 1, m.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("mapping of a foreign patient must be hidden, got %v", err)
	}
	if got, _ := s.ListOwnedMappings(ctx, 2); len(got) != 1 || got[0].Doctor.ID != doc.ID {
		t.Fatalf("owner should see mapping with detail, got %+v", got)
	}
}

func TestStore_MappingPairUniqueAndCascade(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	p, _ := s.CreatePatient(ctx, models.Patient{CreatedBy: 1, FirstName: "Bob", Email: "bob@example.com"})
	d, _ := s.CreateDoctor(ctx, models.Doctor{FirstName: "John", Email: "doc@example.com", Specialization: "Cardiology"})

	if _, err := s.CreateMapping(ctx, models.PatientDoctorMap{PatientID: p.ID, DoctorID: d.ID}); err != nil {
		t.Fatalf("create mapping: %v", err)
	}
	_, err := s.CreateMapping(ctx, models.PatientDoctorMap{PatientID: p.ID, DoctorID: d.ID})
	var conflict *storage.ConflictError
	if !errors.As(err, &conflict) || conflict.Field != storage.FieldPair {
		t.Fatalf("expected pair conflict, got %v", err)
	}

	_, err = s.CreateMapping(ctx, models.PatientDoctorMap{PatientID: p.ID, DoctorID: 99})
	var ref *storage.ReferenceError
	if !errors.Is(err, storage.ErrNotFound) || !errors.As(err, &ref) || ref.Field != storage.FieldDoctor {
		t.Fatalf("expected missing doctor reference, got %v", err)
	}

	if err := s.DeleteDoctor(ctx, d.ID); err != nil {
		t.Fatalf("delete doctor: %v", err)
	}
	if got, _ := s.ListOwnedMappings(ctx, 1); len(got) != 0 {
		t.Fatalf("mappings should cascade with the doctor, got %d", len(got))
	}
}
