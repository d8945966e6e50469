package store

import (
	"database/sql"
	"strings"
	"time"
)

// Event is one recorded interaction.
type Event struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	DeltaY    float64   `json:"delta_y"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}

// EventFilter narrows List. Zero fields match everything.
type EventFilter struct {
	SessionID string
	Kind      string
	Since     time.Time
	Limit     int
}

// EventRepository records and queries interaction events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record inserts an event and sets its ID. A zero CreatedAt is set to now.
func (r *EventRepository) Record(e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	result, err := r.db.Exec(
		`INSERT INTO events (session_id, kind, x, y, delta_y, target, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Kind, e.X, e.Y, e.DeltaY, e.Target, e.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	e.ID, err = result.LastInsertId()
	return err
}

// List returns events matching f, newest first.
func (r *EventRepository) List(f EventFilter) ([]*Event, error) {
	var (
		where []string
		args  []any
	)
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}

	query := `SELECT id, session_id, kind, x, y, delta_y, target, created_at FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.X, &e.Y, &e.DeltaY, &e.Target, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountByKind returns per-kind totals, optionally for one session.
func (r *EventRepository) CountByKind(sessionID string) (map[string]int, error) {
	query := `SELECT kind, COUNT(*) FROM events`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` GROUP BY kind`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// DeleteBefore removes events older than t and returns how many were deleted.
func (r *EventRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM events WHERE created_at < ?`, t.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
