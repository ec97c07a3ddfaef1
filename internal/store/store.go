// Package store persists observations and embeddings. Every backend is
// append-only: repeated ingestion of a city adds rows, nothing is updated.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/i474232898/weatheriq/internal/weather"
)

// Drivers accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Backend is a weather.Store that owns a schema and resources.
type Backend interface {
	weather.Store
	EnsureSchema(ctx context.Context) error
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Driver    string
	DSN       string
	Dimension int
}

// Open creates the configured backend and ensures its schema exists.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	if cfg.Dimension <= 0 {
		return nil, errors.New("store: embedding dimension must be > 0")
	}

	var (
		b   Backend
		err error
	)
	switch cfg.Driver {
	case DriverPostgres:
		b, err = NewPostgresStore(cfg.DSN, cfg.Dimension)
	case DriverSQLite:
		b, err = OpenSQLite(cfg.DSN, cfg.Dimension)
	case DriverMemory:
		b = NewMemoryStore(cfg.Dimension)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := b.EnsureSchema(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

func checkDimension(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), dim)
	}
	return nil
}

func storageErr(op string, err error) error {
	return &weather.StorageError{Op: op, Err: err}
}
