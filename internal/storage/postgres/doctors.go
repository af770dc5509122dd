package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/carelink/carelink-be/internal/models"
)

const doctorCols = `id, first_name, last_name, email, specialization, created_at, updated_at`

func (s *Store) CreateDoctor(ctx context.Context, d models.Doctor) (models.Doctor, error) {
	const query = `
		INSERT INTO doctors (first_name, last_name, email, specialization)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + doctorCols
	row := s.pool.QueryRow(ctx, query, d.FirstName, d.LastName, d.Email, d.Specialization)
	return scanDoctor(row)
}

func (s *Store) GetDoctor(ctx context.Context, id int64) (models.Doctor, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id)
	return scanDoctor(row)
}

func (s *Store) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+doctorCols+` FROM doctors ORDER BY id`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := make([]models.Doctor, 0)
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, translate(rows.Err())
}

func (s *Store) UpdateDoctor(ctx context.Context, d models.Doctor) (models.Doctor, error) {
	const query = `
		UPDATE doctors SET
			first_name = $2, last_name = $3, email = $4, specialization = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + doctorCols
	row := s.pool.QueryRow(ctx, query, d.ID, d.FirstName, d.LastName, d.Email, d.Specialization)
	return scanDoctor(row)
}

func (s *Store) DeleteDoctor(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	return requireRow(tag)
}

func (s *Store) DoctorEmailExists(ctx context.Context, email string, exceptID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM doctors WHERE email = $1 AND id <> $2)`, email, exceptID,
	).Scan(&exists)
	return exists, translate(err)
}

func scanDoctor(row pgx.Row) (models.Doctor, error) {
	var d models.Doctor
	if err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Specialization, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return models.Doctor{}, translate(err)
	}
	return d, nil
}
