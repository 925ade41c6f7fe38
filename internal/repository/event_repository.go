package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/vantrack/fleetsync-go/internal/models"
)

// EventRepository handles database operations for derived events
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert stores a derived event
func (r *EventRepository) Insert(event *models.Event) error {
	result, err := r.db.Exec(`
		INSERT INTO events (device_id, type, severity, timestamp, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.DeviceID, event.Type, event.Severity, event.Timestamp,
		event.Latitude, event.Longitude,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// LastEventTime returns the timestamp of the most recent stored event of the
// given (device, type), or 0 when none exists. The detector's cooldown check
// starts from it.
func (r *EventRepository) LastEventTime(deviceID, eventType string) (int64, error) {
	var ts int64
	err := r.db.QueryRow(`
		SELECT timestamp FROM events
		WHERE device_id = ? AND type = ?
		ORDER BY timestamp DESC LIMIT 1`,
		deviceID, eventType,
	).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query last event time: %w", err)
	}
	return ts, nil
}

// GetEvents retrieves events for a device with filtering and pagination
func (r *EventRepository) GetEvents(deviceID string, filter models.EventFilter) ([]models.Event, int64, error) {
	query := `
		SELECT id, device_id, type, severity, timestamp, latitude, longitude
		FROM events
	`

	conditions := []string{"device_id = ?"}
	args := []interface{}{deviceID}

	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.StartTime > 0 {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, filter.EndTime)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	query += where

	var total int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM events"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}

	offset := (filter.Page - 1) * filter.PageSize
	query += " ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		err := rows.Scan(&e.ID, &e.DeviceID, &e.Type, &e.Severity,
			&e.Timestamp, &e.Latitude, &e.Longitude)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, total, nil
}
