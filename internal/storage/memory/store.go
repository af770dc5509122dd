// Package memory provides in-process stores. They enforce the same unique
// constraints as the Postgres schema and are used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/carelink/carelink-be/internal/models"
	"github.com/carelink/carelink-be/internal/storage"
)

var (
	_ storage.UserStore   = (*Store)(nil)
	_ storage.RecordStore = (*Store)(nil)
)

// Store keeps users and clinical records in maps guarded by a single lock.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	userSeq, patientSeq, doctorSeq, mappingSeq int64

	users    map[int64]models.User
	patients map[int64]models.Patient
	doctors  map[int64]models.Doctor
	mappings map[int64]models.PatientDoctorMap
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		users:    make(map[int64]models.User),
		patients: make(map[int64]models.Patient),
		doctors:  make(map[int64]models.Doctor),
		mappings: make(map[int64]models.PatientDoctorMap),
	}
}

// -- Users --

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return models.User{}, &storage.ConflictError{Field: storage.FieldUsername}
		}
		if user.Email != "" && u.Email == user.Email {
			return models.User{}, &storage.ConflictError{Field: storage.FieldEmail}
		}
	}
	s.userSeq++
	user.ID = s.userSeq
	user.CreatedAt = s.now()
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

// -- Patients --

func (s *Store) CreatePatient(_ context.Context, p models.Patient) (models.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.patientEmailTaken(p.Email, 0) {
		return models.Patient{}, &storage.ConflictError{Field: storage.FieldEmail}
	}
	s.patientSeq++
	p.ID = s.patientSeq
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.patients[p.ID] = p
	return p, nil
}

func (s *Store) GetPatient(_ context.Context, id int64) (models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return models.Patient{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetOwnedPatient(_ context.Context, owner, id int64) (models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok || p.CreatedBy != owner {
		return models.Patient{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListOwnedPatients(_ context.Context, owner int64) ([]models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Patient, 0)
	for _, p := range s.patients {
		if p.CreatedBy == owner {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdatePatient(_ context.Context, p models.Patient) (models.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.patients[p.ID]
	if !ok {
		return models.Patient{}, storage.ErrNotFound
	}
	if s.patientEmailTaken(p.Email, p.ID) {
		return models.Patient{}, &storage.ConflictError{Field: storage.FieldEmail}
	}
	p.CreatedBy = existing.CreatedBy
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now()
	s.patients[p.ID] = p
	return p, nil
}

func (s *Store) DeletePatient(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.patients, id)
	for mid, m := range s.mappings {
		if m.PatientID == id {
			delete(s.mappings, mid)
		}
	}
	return nil
}

func (s *Store) PatientEmailExists(_ context.Context, email string, exceptID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.patientEmailTaken(email, exceptID), nil
}

func (s *Store) patientEmailTaken(email string, exceptID int64) bool {
	for _, p := range s.patients {
		if p.Email == email && p.ID != exceptID {
			return true
		}
	}
	return false
}

// -- Doctors --

func (s *Store) CreateDoctor(_ context.Context, d models.Doctor) (models.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doctorEmailTaken(d.Email, 0) {
		return models.Doctor{}, &storage.ConflictError{Field: storage.FieldEmail}
	}
	s.doctorSeq++
	d.ID = s.doctorSeq
	d.CreatedAt = s.now()
	d.UpdatedAt = d.CreatedAt
	s.doctors[d.ID] = d
	return d, nil
}

func (s *Store) GetDoctor(_ context.Context, id int64) (models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok {
		return models.Doctor{}, storage.ErrNotFound
	}
	return d, nil
}

func (s *Store) ListDoctors(_ context.Context) ([]models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateDoctor(_ context.Context, d models.Doctor) (models.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.doctors[d.ID]
	if !ok {
		return models.Doctor{}, storage.ErrNotFound
	}
	if s.doctorEmailTaken(d.Email, d.ID) {
		return models.Doctor{}, &storage.ConflictError{Field: storage.FieldEmail}
	}
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = s.now()
	s.doctors[d.ID] = d
	return d, nil
}

func (s *Store) DeleteDoctor(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.doctors, id)
	for mid, m := range s.mappings {
		if m.DoctorID == id {
			delete(s.mappings, mid)
		}
	}
	return nil
}

func (s *Store) DoctorEmailExists(_ context.Context, email string, exceptID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doctorEmailTaken(email, exceptID), nil
}

func (s *Store) doctorEmailTaken(email string, exceptID int64) bool {
	for _, d := range s.doctors {
		if d.Email == email && d.ID != exceptID {
			return true
		}
	}
	return false
}

// -- Mappings --

func (s *Store) CreateMapping(_ context.Context, m models.PatientDoctorMap) (models.PatientDoctorMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMappingRefs(m); err != nil {
		return models.PatientDoctorMap{}, err
	}
	if s.pairTaken(m.PatientID, m.DoctorID, 0) {
		return models.PatientDoctorMap{}, &storage.ConflictError{Field: storage.FieldPair}
	}
	s.mappingSeq++
	m.ID = s.mappingSeq
	m.CreatedAt = s.now()
	m.UpdatedAt = m.CreatedAt
	s.mappings[m.ID] = m
	return m, nil
}

func (s *Store) GetMapping(_ context.Context, id int64) (models.PatientDoctorMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[id]
	if !ok {
		return models.PatientDoctorMap{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *Store) GetOwnedMapping(_ context.Context, owner, id int64) (models.MappingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[id]
	if !ok {
		return models.MappingDetail{}, storage.ErrNotFound
	}
	detail, ok := s.detail(m)
	if !ok || detail.Patient.CreatedBy != owner {
		return models.MappingDetail{}, storage.ErrNotFound
	}
	return detail, nil
}

func (s *Store) ListOwnedMappings(_ context.Context, owner int64) ([]models.MappingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownedDetails(func(d models.MappingDetail) bool {
		return d.Patient.CreatedBy == owner
	}), nil
}

func (s *Store) ListOwnedMappingsByPatient(_ context.Context, owner, patientID int64) ([]models.MappingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownedDetails(func(d models.MappingDetail) bool {
		return d.Patient.CreatedBy == owner && d.PatientID == patientID
	}), nil
}

func (s *Store) UpdateMapping(_ context.Context, m models.PatientDoctorMap) (models.PatientDoctorMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.mappings[m.ID]
	if !ok {
		return models.PatientDoctorMap{}, storage.ErrNotFound
	}
	if err := s.checkMappingRefs(m); err != nil {
		return models.PatientDoctorMap{}, err
	}
	if s.pairTaken(m.PatientID, m.DoctorID, m.ID) {
		return models.PatientDoctorMap{}, &storage.ConflictError{Field: storage.FieldPair}
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = s.now()
	s.mappings[m.ID] = m
	return m, nil
}

func (s *Store) DeleteMapping(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mappings[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.mappings, id)
	return nil
}

func (s *Store) MappingExists(_ context.Context, patientID, doctorID, exceptID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pairTaken(patientID, doctorID, exceptID), nil
}

func (s *Store) pairTaken(patientID, doctorID, exceptID int64) bool {
	for _, m := range s.mappings {
		if m.PatientID == patientID && m.DoctorID == doctorID && m.ID != exceptID {
			return true
		}
	}
	return false
}

// checkMappingRefs mirrors the foreign keys of the SQL schema.
func (s *Store) checkMappingRefs(m models.PatientDoctorMap) error {
	if _, ok := s.patients[m.PatientID]; !ok {
		return &storage.ReferenceError{Field: storage.FieldPatient}
	}
	if _, ok := s.doctors[m.DoctorID]; !ok {
		return &storage.ReferenceError{Field: storage.FieldDoctor}
	}
	return nil
}

func (s *Store) detail(m models.PatientDoctorMap) (models.MappingDetail, bool) {
	p, ok := s.patients[m.PatientID]
	if !ok {
		return models.MappingDetail{}, false
	}
	d, ok := s.doctors[m.DoctorID]
	if !ok {
		return models.MappingDetail{}, false
	}
	return models.MappingDetail{PatientDoctorMap: m, Patient: p, Doctor: d}, true
}

func (s *Store) ownedDetails(keep func(models.MappingDetail) bool) []models.MappingDetail {
	out := make([]models.MappingDetail, 0)
	for _, m := range s.mappings {
		d, ok := s.detail(m)
		if ok && keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
