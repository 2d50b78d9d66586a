// This file implements a PostgreSQL-backed generation audit log.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/CarouselPipe/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	DefaultMaxOpenConns    = 10
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "dsn_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore.NewPostgresStore: DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("PostgresStore.NewPostgresStore: failed to open connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore.NewPostgresStore: ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore.NewPostgresStore: failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore.NewPostgresStore: migrations applied")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddGeneration(r models.GenerationRecord) error {
	query := `INSERT INTO generations (` + generationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := s.db.Exec(query, generationArgs(r)...); err != nil {
		slog.Error("PostgresStore.AddGeneration: insert failed", "error", err, "id", r.ID)
		return fmt.Errorf("failed to insert generation %s: %w", r.ID, err)
	}
	slog.Debug("PostgresStore.AddGeneration: stored", "id", r.ID, "outcome", r.Outcome)
	return nil
}

func (s *PostgresStore) GetGenerations() ([]models.GenerationRecord, error) {
	rows, err := s.db.Query(`SELECT ` + generationColumns + ` FROM generations ORDER BY seq`)
	if err != nil {
		slog.Error("PostgresStore.GetGenerations: query failed", "error", err)
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	out, err := scanGenerations(rows)
	if err != nil {
		slog.Error("PostgresStore.GetGenerations: scan failed", "error", err)
		return nil, err
	}
	slog.Debug("PostgresStore.GetGenerations: loaded", "count", len(out))
	return out, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("PostgresStore.Close: failed to close database", "error", err)
	}
	return err
}
