package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/fajarsembar01/home/internal/model"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryFromDB wraps an existing handle
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks the connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Migrate applies the embedded goose migrations.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, r.db.DB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

const userColumns = `id, external_id, username, first_name, last_name, created_at, last_active`

// GetOrCreateUser returns the user with the given external id, creating it
// on first sight. Known users get last_active bumped and non-nil profile
// fields refreshed.
func (r *PostgresRepository) GetOrCreateUser(ctx context.Context, externalID string, username, firstName, lastName *string) (*model.User, error) {
	query := `
		INSERT INTO users (external_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO UPDATE SET
			username    = COALESCE(EXCLUDED.username, users.username),
			first_name  = COALESCE(EXCLUDED.first_name, users.first_name),
			last_name   = COALESCE(EXCLUDED.last_name, users.last_name),
			last_active = NOW()
		RETURNING ` + userColumns

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, externalID, username, firstName, lastName); err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}
	return &user, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}
