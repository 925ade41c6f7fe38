package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vantrack/fleetsync-go/internal/models"
)

// PositionRepository handles database operations for normalized readings
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Append stores readings idempotently. The UNIQUE(device_id, timestamp)
// constraint absorbs duplicate submissions via INSERT OR IGNORE, so
// concurrent writers and repeated batches are safe without locking.
// Returns the number of rows actually inserted.
func (r *PositionRepository) Append(readings []models.Reading) (int, error) {
	query := `
		INSERT OR IGNORE INTO readings (
			device_id, timestamp, latitude, longitude, speed_kmh,
			ignition, ignition_confidence, ignition_method, battery_pct, online
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	inserted := 0
	for _, reading := range readings {
		result, err := r.db.Exec(query,
			reading.DeviceID,
			reading.Timestamp,
			reading.Latitude,
			reading.Longitude,
			reading.SpeedKmh,
			reading.Ignition,
			reading.IgnitionConfidence,
			reading.IgnitionMethod,
			reading.BatteryPct,
			reading.Online,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to append reading for %s@%d: %w",
				reading.DeviceID, reading.Timestamp, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to read affected rows: %w", err)
		}
		inserted += int(affected)
	}

	return inserted, nil
}

// Nearest returns the reading with a position closest in time to ts within
// ±window, or nil when none qualifies. Readings without a fix are skipped
// because the only consumer is coordinate backfill.
func (r *PositionRepository) Nearest(deviceID string, ts int64, window time.Duration) (*models.Reading, error) {
	w := int64(window.Seconds())
	query := `
		SELECT id, device_id, timestamp, latitude, longitude, speed_kmh,
			ignition, ignition_confidence, ignition_method, battery_pct, online
		FROM readings
		WHERE device_id = ? AND timestamp BETWEEN ? AND ?
			AND latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY ABS(timestamp - ?) ASC
		LIMIT 1
	`

	var reading models.Reading
	err := r.db.QueryRow(query, deviceID, ts-w, ts+w, ts).Scan(
		&reading.ID, &reading.DeviceID, &reading.Timestamp,
		&reading.Latitude, &reading.Longitude, &reading.SpeedKmh,
		&reading.Ignition, &reading.IgnitionConfidence, &reading.IgnitionMethod,
		&reading.BatteryPct, &reading.Online,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest reading: %w", err)
	}

	return &reading, nil
}

// Last returns the most recent stored reading for a device, or nil
func (r *PositionRepository) Last(deviceID string) (*models.Reading, error) {
	return r.lastBefore(deviceID, nil)
}

// LastBefore returns the most recent stored reading strictly before ts, or nil.
// The event detector seeds its previous-state comparison with it.
func (r *PositionRepository) LastBefore(deviceID string, ts int64) (*models.Reading, error) {
	return r.lastBefore(deviceID, &ts)
}

func (r *PositionRepository) lastBefore(deviceID string, ts *int64) (*models.Reading, error) {
	query := `
		SELECT id, device_id, timestamp, latitude, longitude, speed_kmh,
			ignition, ignition_confidence, ignition_method, battery_pct, online
		FROM readings
		WHERE device_id = ?
	`
	args := []interface{}{deviceID}
	if ts != nil {
		query += " AND timestamp < ?"
		args = append(args, *ts)
	}
	query += " ORDER BY timestamp DESC LIMIT 1"

	var reading models.Reading
	err := r.db.QueryRow(query, args...).Scan(
		&reading.ID, &reading.DeviceID, &reading.Timestamp,
		&reading.Latitude, &reading.Longitude, &reading.SpeedKmh,
		&reading.Ignition, &reading.IgnitionConfidence, &reading.IgnitionMethod,
		&reading.BatteryPct, &reading.Online,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last reading: %w", err)
	}

	return &reading, nil
}

// GetReadings retrieves readings for a device with filtering and pagination
func (r *PositionRepository) GetReadings(deviceID string, filter models.ReadingFilter) ([]models.Reading, int64, error) {
	query := `
		SELECT id, device_id, timestamp, latitude, longitude, speed_kmh,
			ignition, ignition_confidence, ignition_method, battery_pct, online
		FROM readings
	`

	conditions := []string{"device_id = ?"}
	args := []interface{}{deviceID}

	if filter.StartTime > 0 {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, filter.EndTime)
	}
	if filter.MinSpeed > 0 {
		conditions = append(conditions, "speed_kmh >= ?")
		args = append(args, filter.MinSpeed)
	}
	if filter.MaxSpeed > 0 {
		conditions = append(conditions, "speed_kmh <= ?")
		args = append(args, filter.MaxSpeed)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	query += where

	var total int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM readings"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count readings: %w", err)
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
		return nil, 0, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var reading models.Reading
		err := rows.Scan(
			&reading.ID, &reading.DeviceID, &reading.Timestamp,
			&reading.Latitude, &reading.Longitude, &reading.SpeedKmh,
			&reading.Ignition, &reading.IgnitionConfidence, &reading.IgnitionMethod,
			&reading.BatteryPct, &reading.Online,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}

	return readings, total, nil
}
