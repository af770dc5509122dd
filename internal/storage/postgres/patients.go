package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/carelink/carelink-be/internal/models"
)

const patientCols = `id, created_by, first_name, last_name, email, date_of_birth, phone, created_at, updated_at`

func (s *Store) CreatePatient(ctx context.Context, p models.Patient) (models.Patient, error) {
	const query = `
		INSERT INTO patients (created_by, first_name, last_name, email, date_of_birth, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + patientCols
	row := s.pool.QueryRow(ctx, query, p.CreatedBy, p.FirstName, p.LastName, p.Email, p.DateOfBirth, p.Phone)
	return scanPatient(row)
}

// GetPatient is unscoped; callers must run an ownership check on the result.
func (s *Store) GetPatient(ctx context.Context, id int64) (models.Patient, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

func (s *Store) GetOwnedPatient(ctx context.Context, owner, id int64) (models.Patient, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1 AND created_by = $2`, id, owner)
	return scanPatient(row)
}

func (s *Store) ListOwnedPatients(ctx context.Context, owner int64) ([]models.Patient, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+patientCols+` FROM patients WHERE created_by = $1 ORDER BY id`, owner)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := make([]models.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, translate(rows.Err())
}

// UpdatePatient rewrites the mutable columns. created_by is never changed.
func (s *Store) UpdatePatient(ctx context.Context, p models.Patient) (models.Patient, error) {
	const query = `
		UPDATE patients SET
			first_name = $2, last_name = $3, email = $4, date_of_birth = $5, phone = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + patientCols
	row := s.pool.QueryRow(ctx, query, p.ID, p.FirstName, p.LastName, p.Email, p.DateOfBirth, p.Phone)
	return scanPatient(row)
}

func (s *Store) DeletePatient(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	return requireRow(tag)
}

func (s *Store) PatientEmailExists(ctx context.Context, email string, exceptID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE email = $1 AND id <> $2)`, email, exceptID,
	).Scan(&exists)
	return exists, translate(err)
}

func scanPatient(row pgx.Row) (models.Patient, error) {
	var p models.Patient
	err := row.Scan(&p.ID, &p.CreatedBy, &p.FirstName, &p.LastName, &p.Email, &p.DateOfBirth, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Patient{}, translate(err)
	}
	return p, nil
}
