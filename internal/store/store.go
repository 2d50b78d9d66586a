// Package store provides storage backends for the CarouselPipe generation audit log.
//
// It includes an in-memory store and persistent SQLite and PostgreSQL stores.
package store

import (
	"strings"
	"sync"

	"github.com/BTreeMap/CarouselPipe/internal/models"
)

// Store persists one audit record per generation invocation.
type Store interface {
	AddGeneration(r models.GenerationRecord) error
	// GetGenerations returns records oldest first.
	GetGenerations() ([]models.GenerationRecord, error)
	Close() error
}

// Opts holds configuration options for stores.
type Opts struct {
	DSN  string // database connection string
	Kind string // "sqlite" or "postgres"; empty selects the in-memory store
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Kind = "sqlite"
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Kind = "postgres"
	}
}

// DetectDSNType reports "postgres" for URL or key-value PostgreSQL DSNs and "sqlite" otherwise.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// New opens the store selected by opts: Postgres, SQLite, or in-memory when no DSN is given.
func New(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.DSN == "":
		return NewInMemoryStore(), nil
	case cfg.Kind == "postgres":
		return NewPostgresStore(opts...)
	default:
		return NewSQLiteStore(opts...)
	}
}

// InMemoryStore keeps audit records in process memory.
type InMemoryStore struct {
	mu          sync.RWMutex
	generations []models.GenerationRecord
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) AddGeneration(r models.GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations = append(s.generations, r)
	return nil
}

func (s *InMemoryStore) GetGenerations() ([]models.GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.GenerationRecord, len(s.generations))
	copy(out, s.generations)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
