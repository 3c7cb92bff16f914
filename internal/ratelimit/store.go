package ratelimit

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // embedded driver for the event log
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS consumptions (
	backend TEXT NOT NULL,
	ts      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_consumptions_backend_ts ON consumptions (backend, ts);
`

// Store persists consumption timestamps in an embedded sqlite database so
// quota accounting survives restarts.
type Store struct {
	db *sqlx.DB
}

// OpenStore opens the event log at path, creating it as needed. A corrupted
// database is not fatal: it is logged, removed, and recreated empty. An
// empty path opens an in-memory store.
func OpenStore(path string, logger *zap.Logger) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	store, err := openAt(dsn)
	if err == nil || dsn == ":memory:" {
		return store, err
	}

	logger.Warn("rate limit store unreadable, resetting",
		zap.String("path", path),
		zap.Error(err),
	)
	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		return nil, fmt.Errorf("remove corrupt store: %w", rmErr)
	}
	return openAt(dsn)
}

func openAt(dsn string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	// One writer at a time; the Limiter serializes access anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends one consumption event.
func (s *Store) Record(ctx context.Context, backend string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO consumptions (backend, ts) VALUES (?, ?)`,
		backend, at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert consumption: %w", err)
	}
	return nil
}

// CountSince returns the number of events for backend at or after cutoff.
func (s *Store) CountSince(ctx context.Context, backend string, cutoff time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM consumptions WHERE backend = ? AND ts >= ?`,
		backend, cutoff.UnixNano(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count consumptions: %w", err)
	}
	return count, nil
}

// Prune deletes events older than cutoff; they can no longer affect any
// configured window.
func (s *Store) Prune(ctx context.Context, backend string, cutoff time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM consumptions WHERE backend = ? AND ts < ?`,
		backend, cutoff.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("prune consumptions: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
