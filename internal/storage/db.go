package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // Register SQLite driver
	"github.com/sirupsen/logrus"
)

// Recorder observes the outcome of every storage operation
type Recorder interface {
	ObserveOperation(op string, duration time.Duration, err error)
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the clock used to stamp creation times
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRecorder attaches an operation recorder, such as the metrics collector
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// Service owns one lazily opened SQLite connection holding the task and
// prompt collections. The zero state is closed; the first operation or an
// explicit Initialize opens it.
type Service struct {
	path     string
	now      func() time.Time
	recorder Recorder

	mu sync.RWMutex
	db *sql.DB
}

// New creates a storage service for the database at path. Nothing is opened
// until the first operation.
func New(path string, opts ...Option) *Service {
	s := &Service{
		path: path,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the database location
func (s *Service) Path() string {
	return s.path
}

// IsOpen reports whether a live connection is held
func (s *Service) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// Initialize opens the database, creating it if absent, and applies any
// migrations newer than the stored schema version. Calling it on an open
// service is a no-op. Concurrent callers serialize on the open sequence, so
// only one connection is ever established.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := s.open(ctx)
	if err != nil {
		return &ConnectionError{Path: s.path, Err: err}
	}
	s.db = db
	return nil
}

// conn returns the live connection, opening it first if needed
func (s *Service) conn(ctx context.Context) (*sql.DB, error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if db != nil {
		return db, nil
	}

	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, &ConnectionError{Path: s.path, Err: errConnectionClosed}
	}
	return s.db, nil
}

func (s *Service) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and lets SQLite
	// order transactions itself.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := upgrade(ctx, db, SchemaVersion); err != nil {
		closeQuietly(db)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"db_path":  s.path,
		"database": DatabaseName,
		"version":  SchemaVersion,
	}).Info("Opened to-do database")
	return db, nil
}

// upgrade brings the stored schema up to target. Each migration runs in its
// own transaction together with its schema_version row.
func upgrade(ctx context.Context, db *sql.DB, target int) error {
	if _, err := db.ExecContext(ctx, SchemaBootstrap); err != nil {
		return fmt.Errorf("failed to create schema bookkeeping: %w", err)
	}

	var name string
	err := db.QueryRowContext(ctx, "SELECT value FROM schema_meta WHERE name = 'database'").Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx,
			"INSERT INTO schema_meta (name, value) VALUES ('database', ?)", DatabaseName); err != nil {
			return fmt.Errorf("failed to record database name: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to read database name: %w", err)
	case name != DatabaseName:
		return fmt.Errorf("database belongs to %q, expected %q", name, DatabaseName)
	}

	currentVersion := 0
	if err := db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if currentVersion > target {
		return fmt.Errorf("stored schema version %d is newer than requested version %d", currentVersion, target)
	}

	for _, migration := range Migrations {
		if migration.Version <= currentVersion || migration.Version > target {
			continue
		}

		logrus.WithField("version", migration.Version).Info("Applying schema migration")

		if err := applyMigration(ctx, db, migration); err != nil {
			return err
		}
		currentVersion = migration.Version
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, migration Migration) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			return fmt.Errorf("failed to apply migration v%d: %w", migration.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
			migration.Version,
			time.Now().Unix(),
		); err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", migration.Version, err)
		}
		return nil
	})
}

// inTx runs fn in a transaction, committing on success and rolling back otherwise
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				logrus.WithError(rollbackErr).Warn("Failed to rollback transaction")
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Close releases the connection. A later operation reopens it.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

func (s *Service) observe(op string, start time.Time, err error) {
	if s.recorder != nil {
		s.recorder.ObserveOperation(op, time.Since(start), err)
	}
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close database connection after init error")
	}
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
