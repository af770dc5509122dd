package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/carelink/carelink-be/internal/models"
)

const mappingCols = `id, patient_id, doctor_id, created_at, updated_at`

// mappingDetailSelect joins each mapping with both ends. Ownership filters
// go on p.created_by.
const mappingDetailSelect = `
	SELECT m.id, m.patient_id, m.doctor_id, m.created_at, m.updated_at,
		p.id, p.created_by, p.first_name, p.last_name, p.email, p.date_of_birth, p.phone, p.created_at, p.updated_at,
		d.id, d.first_name, d.last_name, d.email, d.specialization, d.created_at, d.updated_at
	FROM patient_doctor_maps m
	JOIN patients p ON p.id = m.patient_id
	JOIN doctors d ON d.id = m.doctor_id`

func (s *Store) CreateMapping(ctx context.Context, m models.PatientDoctorMap) (models.PatientDoctorMap, error) {
	const query = `
		INSERT INTO patient_doctor_maps (patient_id, doctor_id)
		VALUES ($1, $2)
		RETURNING ` + mappingCols
	return scanMapping(s.pool.QueryRow(ctx, query, m.PatientID, m.DoctorID))
}

// GetMapping is unscoped; callers must run an ownership check on the result.
func (s *Store) GetMapping(ctx context.Context, id int64) (models.PatientDoctorMap, error) {
	return scanMapping(s.pool.QueryRow(ctx, `SELECT `+mappingCols+` FROM patient_doctor_maps WHERE id = $1`, id))
}

func (s *Store) GetOwnedMapping(ctx context.Context, owner, id int64) (models.MappingDetail, error) {
	row := s.pool.QueryRow(ctx, mappingDetailSelect+` WHERE m.id = $1 AND p.created_by = $2`, id, owner)
	return scanMappingDetail(row)
}

func (s *Store) ListOwnedMappings(ctx context.Context, owner int64) ([]models.MappingDetail, error) {
	return s.listMappingDetails(ctx, mappingDetailSelect+` WHERE p.created_by = $1 ORDER BY m.id`, owner)
}

func (s *Store) ListOwnedMappingsByPatient(ctx context.Context, owner, patientID int64) ([]models.MappingDetail, error) {
	return s.listMappingDetails(ctx,
		mappingDetailSelect+` WHERE p.created_by = $1 AND m.patient_id = $2 ORDER BY m.id`, owner, patientID)
}

func (s *Store) UpdateMapping(ctx context.Context, m models.PatientDoctorMap) (models.PatientDoctorMap, error) {
	const query = `
		UPDATE patient_doctor_maps SET patient_id = $2, doctor_id = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + mappingCols
	return scanMapping(s.pool.QueryRow(ctx, query, m.ID, m.PatientID, m.DoctorID))
}

func (s *Store) DeleteMapping(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM patient_doctor_maps WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	return requireRow(tag)
}

func (s *Store) MappingExists(ctx context.Context, patientID, doctorID, exceptID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patient_doctor_maps WHERE patient_id = $1 AND doctor_id = $2 AND id <> $3)`,
		patientID, doctorID, exceptID,
	).Scan(&exists)
	return exists, translate(err)
}

func (s *Store) listMappingDetails(ctx context.Context, query string, args ...any) ([]models.MappingDetail, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := make([]models.MappingDetail, 0)
	for rows.Next() {
		d, err := scanMappingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, translate(rows.Err())
}

func scanMapping(row pgx.Row) (models.PatientDoctorMap, error) {
	var m models.PatientDoctorMap
	if err := row.Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return models.PatientDoctorMap{}, translate(err)
	}
	return m, nil
}

func scanMappingDetail(row pgx.Row) (models.MappingDetail, error) {
	var (
		d models.MappingDetail
		p = &d.Patient
		o = &d.Doctor
	)
	err := row.Scan(
		&d.ID, &d.PatientID, &d.DoctorID, &d.CreatedAt, &d.UpdatedAt,
		&p.ID, &p.CreatedBy, &p.FirstName, &p.LastName, &p.Email, &p.DateOfBirth, &p.Phone, &p.CreatedAt, &p.UpdatedAt,
		&o.ID, &o.FirstName, &o.LastName, &o.Email, &o.Specialization, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return models.MappingDetail{}, translate(err)
	}
	return d, nil
}
