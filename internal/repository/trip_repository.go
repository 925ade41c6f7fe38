package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/vantrack/fleetsync-go/internal/models"
)

// TripRepository handles database operations for trips
type TripRepository struct {
	db *sql.DB
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db}
}

const tripColumns = `id, device_id, start_time, end_time, duration_seconds,
	start_lat, start_lon, end_lat, end_lon,
	distance_meters, max_speed_kmh, avg_speed_kmh, source`

func scanTrip(scanner interface{ Scan(...interface{}) error }, t *models.Trip) error {
	return scanner.Scan(
		&t.ID, &t.DeviceID, &t.StartTime, &t.EndTime, &t.DurationSeconds,
		&t.StartLat, &t.StartLon, &t.EndLat, &t.EndLon,
		&t.DistanceMeters, &t.MaxSpeedKmh, &t.AvgSpeedKmh, &t.Source,
	)
}

// Insert stores a trip, skipping silently when (device, start, end) already
// exists. Returns whether a row was actually written.
func (r *TripRepository) Insert(trip *models.Trip) (bool, error) {
	query := `
		INSERT OR IGNORE INTO trips (
			device_id, start_time, end_time, duration_seconds,
			start_lat, start_lon, end_lat, end_lon,
			distance_meters, max_speed_kmh, avg_speed_kmh, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		trip.DeviceID, trip.StartTime, trip.EndTime, trip.DurationSeconds,
		trip.StartLat, trip.StartLon, trip.EndLat, trip.EndLon,
		trip.DistanceMeters, trip.MaxSpeedKmh, trip.AvgSpeedKmh, trip.Source,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert trip: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		if id, err := result.LastInsertId(); err == nil {
			trip.ID = id
		}
	}

	return affected > 0, nil
}

// Exists reports whether a trip with the same (device, start, end) is stored
func (r *TripRepository) Exists(deviceID string, startTime, endTime int64) (bool, error) {
	var n int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM trips WHERE device_id = ? AND start_time = ? AND end_time = ?",
		deviceID, startTime, endTime,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check trip existence: %w", err)
	}
	return n > 0, nil
}

// GetTrips retrieves trips with filtering and pagination
func (r *TripRepository) GetTrips(filter models.TripFilter) ([]models.Trip, int64, error) {
	query := "SELECT " + tripColumns + " FROM trips"

	var conditions []string
	var args []interface{}

	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.StartTime > 0 {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "end_time <= ?")
		args = append(args, filter.EndTime)
	}
	if filter.MinDistance > 0 {
		conditions = append(conditions, "distance_meters >= ?")
		args = append(args, filter.MinDistance)
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	query += where

	var total int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM trips"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
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
	query += " ORDER BY start_time DESC LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		var t models.Trip
		if err := scanTrip(rows, &t); err != nil {
			return nil, 0, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, t)
	}

	return trips, total, nil
}

// GetTripByID retrieves a single trip by ID
func (r *TripRepository) GetTripByID(id int64) (*models.Trip, error) {
	query := "SELECT " + tripColumns + " FROM trips WHERE id = ?"

	var t models.Trip
	err := scanTrip(r.db.QueryRow(query, id), &t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return &t, nil
}

// MissingCoordinates retrieves trips in [from, to] with any nil endpoint.
// deviceID may be empty for a fleet-wide scope.
func (r *TripRepository) MissingCoordinates(deviceID string, from, to int64) ([]models.Trip, error) {
	query := "SELECT " + tripColumns + ` FROM trips
		WHERE start_time >= ? AND start_time <= ?
		AND (start_lat IS NULL OR end_lat IS NULL)`
	args := []interface{}{from, to}

	if deviceID != "" {
		query += " AND device_id = ?"
		args = append(args, deviceID)
	}
	query += " ORDER BY start_time ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips missing coordinates: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		var t models.Trip
		if err := scanTrip(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, t)
	}

	return trips, nil
}

// BackfillStartCoordinates writes the start endpoint only when it is still
// null, so repeated reconciliation runs are no-ops. Returns whether the row
// changed.
func (r *TripRepository) BackfillStartCoordinates(id int64, lat, lon float64) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE trips SET start_lat = ?, start_lon = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND start_lat IS NULL`,
		lat, lon, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to backfill start coordinates: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// BackfillEndCoordinates is the end-endpoint counterpart of BackfillStartCoordinates
func (r *TripRepository) BackfillEndCoordinates(id int64, lat, lon float64) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE trips SET end_lat = ?, end_lon = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND end_lat IS NULL`,
		lat, lon, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to backfill end coordinates: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}
