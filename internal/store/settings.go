package store

import (
	"database/sql"
	"errors"
	"strconv"
)

// GestureControlKey is the settings key of the gesture control preference.
const GestureControlKey = "gesture-control-enabled"

// SettingsRepository reads and writes key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetBool returns the boolean stored under key, or def when unset.
func (r *SettingsRepository) GetBool(key string, def bool) (bool, error) {
	value, err := r.Get(key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return def, err
	}
	return b, nil
}

// SetBool stores a boolean under key.
func (r *SettingsRepository) SetBool(key string, value bool) error {
	return r.Set(key, strconv.FormatBool(value))
}

// Preferences persists the gesture control flag in the settings table.
type Preferences struct {
	settings *SettingsRepository
}

// Preferences returns the gesture control preference backed by this store.
func (s *Store) Preferences() *Preferences {
	return &Preferences{settings: s.Settings()}
}

// GestureControlEnabled reports the stored flag; unset means disabled.
func (p *Preferences) GestureControlEnabled() (bool, error) {
	return p.settings.GetBool(GestureControlKey, false)
}

// SetGestureControlEnabled stores the flag.
func (p *Preferences) SetGestureControlEnabled(enabled bool) error {
	return p.settings.SetBool(GestureControlKey, enabled)
}
