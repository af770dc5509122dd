package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/carelink-be/internal/storage"
)

// Ensure Store satisfies the storage interfaces at compile time.
var (
	_ storage.UserStore   = (*Store)(nil)
	_ storage.RecordStore = (*Store)(nil)
)

// Store provides Postgres-backed persistence for users and clinical records.
type Store struct {
	pool *pgxpool.Pool
}

// Options tunes the connection pool. Zero values keep pgxpool defaults.
type Options struct {
	MaxConns int32
	MinConns int32
}

// NewStore connects to databaseURL and runs migrations.
func NewStore(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(150) NOT NULL,
			email VARCHAR(254),
			name VARCHAR(150) NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT users_username_key UNIQUE (username),
			CONSTRAINT users_email_key UNIQUE (email)
		);`,
		`CREATE TABLE IF NOT EXISTS patients (
			id BIGSERIAL PRIMARY KEY,
			created_by BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL DEFAULT '',
			email VARCHAR(254) NOT NULL,
			date_of_birth DATE,
			phone VARCHAR(20) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT patients_email_key UNIQUE (email)
		);`,
		`CREATE INDEX IF NOT EXISTS patients_created_by_idx ON patients (created_by);`,
		`CREATE TABLE IF NOT EXISTS doctors (
			id BIGSERIAL PRIMARY KEY,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL DEFAULT '',
			email VARCHAR(254) NOT NULL,
			specialization VARCHAR(120) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT doctors_email_key UNIQUE (email)
		);`,
		`CREATE TABLE IF NOT EXISTS patient_doctor_maps (
			id BIGSERIAL PRIMARY KEY,
			patient_id BIGINT NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
			doctor_id BIGINT NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT unique_patient_doctor UNIQUE (patient_id, doctor_id)
		);`,
		`CREATE INDEX IF NOT EXISTS patient_doctor_maps_doctor_idx ON patient_doctor_maps (doctor_id);`,
		`CREATE TABLE IF NOT EXISTS attempt_counters (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL,
			expires_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS attempt_counters_expires_idx ON attempt_counters (expires_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

var uniqueConstraintFields = map[string]string{
	"users_username_key":    storage.FieldUsername,
	"users_email_key":       storage.FieldEmail,
	"patients_email_key":    storage.FieldEmail,
	"doctors_email_key":     storage.FieldEmail,
	"unique_patient_doctor": storage.FieldPair,
}

// Default Postgres names for the REFERENCES clauses above.
var foreignKeyFields = map[string]string{
	"patient_doctor_maps_patient_id_fkey": storage.FieldPatient,
	"patient_doctor_maps_doctor_id_fkey":  storage.FieldDoctor,
	"patients_created_by_fkey":            storage.FieldOwner,
}

// translate maps driver errors onto the storage sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			field, ok := uniqueConstraintFields[pgErr.ConstraintName]
			if !ok {
				field = pgErr.ConstraintName
			}
			return &storage.ConflictError{Field: field}
		case "23503":
			if field, ok := foreignKeyFields[pgErr.ConstraintName]; ok {
				return &storage.ReferenceError{Field: field}
			}
			return storage.ErrNotFound
		}
	}
	return err
}

func requireRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
