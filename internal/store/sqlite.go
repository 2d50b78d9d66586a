// This file implements an SQLite-backed generation audit log.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/CarouselPipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating SQLite store", "dsn_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore.NewSQLiteStore: DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: failed to open connection", "error", err)
		return nil, err
	}
	// A single connection avoids SQLITE_BUSY between concurrent writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: migrations applied", "path", dsn)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddGeneration(r models.GenerationRecord) error {
	query := `INSERT INTO generations (` + generationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.Exec(query, generationArgs(r)...); err != nil {
		slog.Error("SQLiteStore.AddGeneration: insert failed", "error", err, "id", r.ID)
		return fmt.Errorf("failed to insert generation %s: %w", r.ID, err)
	}
	slog.Debug("SQLiteStore.AddGeneration: stored", "id", r.ID, "outcome", r.Outcome)
	return nil
}

func (s *SQLiteStore) GetGenerations() ([]models.GenerationRecord, error) {
	rows, err := s.db.Query(`SELECT ` + generationColumns + ` FROM generations ORDER BY seq`)
	if err != nil {
		slog.Error("SQLiteStore.GetGenerations: query failed", "error", err)
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	out, err := scanGenerations(rows)
	if err != nil {
		slog.Error("SQLiteStore.GetGenerations: scan failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore.GetGenerations: loaded", "count", len(out))
	return out, nil
}

// ClearGenerations deletes all audit records (for tests).
func (s *SQLiteStore) ClearGenerations() error {
	_, err := s.db.Exec("DELETE FROM generations")
	return err
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("SQLiteStore.Close: failed to close database", "error", err)
	}
	return err
}
