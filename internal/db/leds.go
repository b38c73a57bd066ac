package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DriveRecord represents a drive's persisted LED state
type DriveRecord struct {
	ID          int64
	Path        string
	Name        string
	Serial      string
	Model       string
	Kind        string
	SizeBytes   int64
	Port        int
	Bay         int
	LastPattern string
	FirstSeen   time.Time
	LastSeen    time.Time
}

// LEDEvent represents one LED write attempt
type LEDEvent struct {
	ID        string
	DrivePath string
	Pattern   string
	Action    string
	OK        bool
	Error     string
	Timestamp time.Time
}

// Event actions
const (
	ActionSet    = "set"
	ActionLocate = "locate"
	ActionNormal = "normal"
)

// UpsertDrive inserts or refreshes a drive record, preserving its
// last_pattern and first_seen on conflict
func (d *DB) UpsertDrive(r *DriveRecord) error {
	_, err := d.conn.Exec(`
		INSERT INTO drives (path, name, serial, model, kind, size_bytes, port, bay)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			serial = excluded.serial,
			model = excluded.model,
			kind = excluded.kind,
			size_bytes = excluded.size_bytes,
			port = excluded.port,
			bay = excluded.bay,
			last_seen = CURRENT_TIMESTAMP
	`, r.Path, r.Name, r.Serial, r.Model, r.Kind, r.SizeBytes, r.Port, r.Bay)
	if err != nil {
		return fmt.Errorf("failed to upsert drive %s: %w", r.Path, err)
	}
	return nil
}

// GetDrive returns the record for a controller path, or nil if unseen
func (d *DB) GetDrive(path string) (*DriveRecord, error) {
	row := d.conn.QueryRow(`
		SELECT id, path, name, serial, model, kind, size_bytes, port, bay,
		       last_pattern, first_seen, last_seen
		FROM drives WHERE path = ?
	`, path)

	var r DriveRecord
	err := row.Scan(&r.ID, &r.Path, &r.Name, &r.Serial, &r.Model, &r.Kind,
		&r.SizeBytes, &r.Port, &r.Bay, &r.LastPattern, &r.FirstSeen, &r.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query drive %s: %w", path, err)
	}
	return &r, nil
}

// ListDrives returns all known drives ordered by port
func (d *DB) ListDrives() ([]DriveRecord, error) {
	rows, err := d.conn.Query(`
		SELECT id, path, name, serial, model, kind, size_bytes, port, bay,
		       last_pattern, first_seen, last_seen
		FROM drives ORDER BY port, path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list drives: %w", err)
	}
	defer rows.Close()

	var drives []DriveRecord
	for rows.Next() {
		var r DriveRecord
		if err := rows.Scan(&r.ID, &r.Path, &r.Name, &r.Serial, &r.Model, &r.Kind,
			&r.SizeBytes, &r.Port, &r.Bay, &r.LastPattern, &r.FirstSeen, &r.LastSeen); err != nil {
			return nil, err
		}
		drives = append(drives, r)
	}
	return drives, rows.Err()
}

// LastPattern returns the last successfully applied pattern for a
// drive, or "unknown" if the drive has never been written
func (d *DB) LastPattern(path string) (string, error) {
	var pattern string
	err := d.conn.QueryRow("SELECT last_pattern FROM drives WHERE path = ?", path).Scan(&pattern)
	if err == sql.ErrNoRows {
		return "unknown", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query last pattern for %s: %w", path, err)
	}
	return pattern, nil
}

// SetLastPattern records a successful LED write for the drive
func (d *DB) SetLastPattern(path, pattern string) error {
	_, err := d.conn.Exec(`
		UPDATE drives SET last_pattern = ?, last_seen = CURRENT_TIMESTAMP WHERE path = ?
	`, pattern, path)
	if err != nil {
		return fmt.Errorf("failed to update last pattern for %s: %w", path, err)
	}
	return nil
}

// RecordEvent logs one LED write attempt
func (d *DB) RecordEvent(drivePath, pattern, action string, ok bool, errMsg string) error {
	_, err := d.conn.Exec(`
		INSERT INTO led_events (id, drive_path, pattern, action, ok, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), drivePath, pattern, action, ok, errMsg)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent LED events, newest first
func (d *DB) ListEvents(limit int) ([]LEDEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(`
		SELECT id, drive_path, pattern, action, ok, COALESCE(error, ''), timestamp
		FROM led_events ORDER BY timestamp DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []LEDEvent
	for rows.Next() {
		var e LEDEvent
		if err := rows.Scan(&e.ID, &e.DrivePath, &e.Pattern, &e.Action, &e.OK, &e.Error, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
