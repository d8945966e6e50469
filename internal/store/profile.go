package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medlink-research/wand/internal/gesture"
)

// Preset profile names.
const (
	PresetDefault  = "default"
	PresetFistOnly = "fist-only"
)

// Profile is a named set of gesture thresholds.
type Profile struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Config    gesture.Config `json:"config"`
	Builtin   bool           `json:"builtin"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ProfileRepository provides CRUD operations for calibration profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

// SeedPresets inserts the preset profiles that are missing and activates
// "default" when no profile is active.
func (r *ProfileRepository) SeedPresets() error {
	presets := []Profile{
		{Name: PresetDefault, Config: gesture.DefaultConfig(), Builtin: true},
		{Name: PresetFistOnly, Config: gesture.FistOnlyConfig(), Builtin: true},
	}
	for i := range presets {
		_, err := r.GetByName(presets[i].Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := r.create(&presets[i]); err != nil {
			return err
		}
	}

	if _, err := r.Active(); errors.Is(err, ErrNotFound) {
		p, err := r.GetByName(PresetDefault)
		if err != nil {
			return err
		}
		return r.Activate(p.ID)
	} else if err != nil {
		return err
	}
	return nil
}

// Create inserts a user profile. An empty ID is replaced by a new UUID.
func (r *ProfileRepository) Create(p *Profile) error {
	p.Builtin = false
	p.Active = false
	return r.create(p)
}

func (r *ProfileRepository) create(p *Profile) error {
	if err := p.Config.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	config, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("encoding profile config: %w", err)
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err = r.db.Exec(
		`INSERT INTO profiles (id, name, config, builtin, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(config), p.Builtin, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

const profileColumns = `id, name, config, builtin, active, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*Profile, error) {
	p := &Profile{}
	var config string
	if err := row.Scan(&p.ID, &p.Name, &config, &p.Builtin, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// unset fields keep their defaults
	p.Config = gesture.DefaultConfig()
	if err := json.Unmarshal([]byte(config), &p.Config); err != nil {
		return nil, fmt.Errorf("decoding config of profile %s: %w", p.Name, err)
	}
	return p, nil
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	return scanProfile(r.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
}

// GetByName retrieves a profile by its name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	return scanProfile(r.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name))
}

// Active retrieves the active profile.
func (r *ProfileRepository) Active() (*Profile, error) {
	return scanProfile(r.db.QueryRow(`SELECT ` + profileColumns + ` FROM profiles WHERE active = 1`))
}

// List retrieves all profiles, presets first, then by name.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(`SELECT ` + profileColumns + ` FROM profiles ORDER BY builtin DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Update replaces a user profile's name and thresholds.
func (r *ProfileRepository) Update(p *Profile) error {
	existing, err := r.GetByID(p.ID)
	if err != nil {
		return err
	}
	if existing.Builtin {
		return fmt.Errorf("%w: %s", ErrBuiltin, existing.Name)
	}
	if err := p.Config.Validate(); err != nil {
		return err
	}
	config, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("encoding profile config: %w", err)
	}

	p.UpdatedAt = time.Now()
	_, err = r.db.Exec(
		`UPDATE profiles SET name = ?, config = ?, updated_at = ? WHERE id = ?`,
		p.Name, string(config), p.UpdatedAt, p.ID,
	)
	return err
}

// Delete removes a user profile. Deleting the active profile reactivates
// the default preset.
func (r *ProfileRepository) Delete(id string) error {
	p, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if p.Builtin {
		return fmt.Errorf("%w: %s", ErrBuiltin, p.Name)
	}

	if _, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id); err != nil {
		return err
	}
	if p.Active {
		def, err := r.GetByName(PresetDefault)
		if err != nil {
			return err
		}
		return r.Activate(def.ID)
	}
	return nil
}

// Activate makes the profile with id the only active one.
func (r *ProfileRepository) Activate(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// deactivate first; the schema allows a single active row
	if _, err := tx.Exec(`UPDATE profiles SET active = 0 WHERE active = 1 AND id != ?`, id); err != nil {
		return err
	}
	result, err := tx.Exec(`UPDATE profiles SET active = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
