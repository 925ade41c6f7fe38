package models

import "time"

// Trip represents one inferred journey for a device
type Trip struct {
	ID       int64  `json:"id" db:"id"`
	DeviceID string `json:"device_id" db:"device_id"`

	// Temporal info
	StartTime       int64 `json:"start_time" db:"start_time"` // Unix timestamp
	EndTime         int64 `json:"end_time" db:"end_time"`     // Unix timestamp
	DurationSeconds int64 `json:"duration_seconds" db:"duration_seconds"`

	// Endpoints; a pair is either both set or both nil
	StartLat *float64 `json:"start_lat,omitempty" db:"start_lat"`
	StartLon *float64 `json:"start_lon,omitempty" db:"start_lon"`
	EndLat   *float64 `json:"end_lat,omitempty" db:"end_lat"`
	EndLon   *float64 `json:"end_lon,omitempty" db:"end_lon"`

	// Trip characteristics
	DistanceMeters float64 `json:"distance_meters" db:"distance_meters"`
	MaxSpeedKmh    float64 `json:"max_speed_kmh,omitempty" db:"max_speed_kmh"`
	AvgSpeedKmh    float64 `json:"avg_speed_kmh,omitempty" db:"avg_speed_kmh"`

	// Provenance
	Source string `json:"source" db:"source"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Trip source constants
const (
	TripSourceVendor    = "vendor"    // vendor-computed trip summary
	TripSourceSegmented = "segmented" // fallback segmentation from readings
)

// HasStartCoords reports whether the start endpoint is populated
func (t *Trip) HasStartCoords() bool {
	return t.StartLat != nil && t.StartLon != nil
}

// HasEndCoords reports whether the end endpoint is populated
func (t *Trip) HasEndCoords() bool {
	return t.EndLat != nil && t.EndLon != nil
}

// TripsResponse represents a paginated response of trips
type TripsResponse struct {
	Data       []Trip `json:"data"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}
