package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/carelink/carelink-be/internal/models"
)

const userCols = `id, username, COALESCE(email, ''), name, password_hash, created_at`

// CreateUser inserts a new user row. An empty email is stored as NULL so it
// never collides with other users without one.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (username, email, name, password_hash)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		RETURNING ` + userCols
	row := s.pool.QueryRow(ctx, query, user.Username, user.Email, user.Name, user.PasswordHash)
	return scanUser(row)
}

// FindByID fetches a user by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByUsername fetches a user by username.
func (s *Store) FindByUsername(ctx context.Context, username string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt); err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}
