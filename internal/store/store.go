// Package store provides SQLite persistence for wand: the gesture control
// preference, calibration profiles and the interaction log.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBuiltin is returned when modifying a preset profile.
	ErrBuiltin = errors.New("builtin profile")
)

// pragmas run on the single connection before migrating. WAL lets the
// event recorder write while the HTTP API reads the log.
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
}

// Store owns the SQLite handle. Repositories are cheap views over it.
type Store struct {
	db   *sql.DB
	path string
}

// New opens the database at dbPath, brings its schema up to date and seeds
// the preset calibration profiles.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one connection keeps ":memory:" databases coherent and the pragmas in effect
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := s.Profiles().SeedPresets(); err != nil {
		return fmt.Errorf("seed profiles: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for tests and maintenance queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Path() string {
	return s.path
}
