// Package store persists interview sessions. Both implementations hand
// out deep copies and enforce optimistic concurrency: a save only lands
// when the caller read the version it is replacing.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/session"
)

var (
	// ErrNotFound indicates no session exists under the given id.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyExists indicates a create collided with an existing id.
	ErrAlreadyExists = errors.New("session already exists")

	// ErrVersionConflict indicates the session changed since it was
	// loaded. Callers reload and replay.
	ErrVersionConflict = errors.New("session version conflict")
)

// Store is the persistence seam for sessions.
type Store interface {
	// Create persists a new session. Returns ErrAlreadyExists when the
	// id is taken.
	Create(ctx context.Context, s *session.Session) error

	// Load returns a copy of the session, or ErrNotFound.
	Load(ctx context.Context, id string) (*session.Session, error)

	// Save persists s if the stored version still equals expectedVersion,
	// then bumps s.Version. Returns ErrVersionConflict when another
	// writer got there first, ErrNotFound when the session vanished.
	Save(ctx context.Context, s *session.Session, expectedVersion int64) error

	// List returns all sessions, most recently created first.
	List(ctx context.Context) ([]*session.Session, error)

	Close() error
}

// Supported drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config selects and tunes the session store.
type Config struct {
	// Driver is one of memory or sqlite. Empty defaults to memory.
	Driver string `koanf:"driver"`

	// Path is the database file location for the sqlite driver.
	Path string `koanf:"path"`
}

// New creates the configured store.
func New(cfg Config, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(cfg.Path, log)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}
