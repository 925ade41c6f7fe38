package models

import "time"

// Reading represents one normalized telemetry sample for a device at an instant
type Reading struct {
	ID        int64  `json:"id" db:"id"`
	DeviceID  string `json:"device_id" db:"device_id"`
	Timestamp int64  `json:"timestamp" db:"timestamp"` // Unix timestamp in seconds, UTC

	// Position (nil when the vendor sent no fix or the zero-sentinel pair)
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`

	// Motion
	SpeedKmh float64 `json:"speed_kmh" db:"speed_kmh"` // canonical unit, jitter-clamped

	// Ignition with detection metadata
	Ignition           *bool   `json:"ignition,omitempty" db:"ignition"`
	IgnitionConfidence float64 `json:"ignition_confidence" db:"ignition_confidence"` // 0.0-1.0
	IgnitionMethod     string  `json:"ignition_method" db:"ignition_method"`

	// Device state
	BatteryPct *int `json:"battery_pct,omitempty" db:"battery_pct"`
	Online     bool `json:"online" db:"online"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Ignition detection method constants, ordered by decreasing trust
const (
	IgnitionMethodBitField    = "bitfield"
	IgnitionMethodStringMatch = "string-pattern"
	IgnitionMethodSpeed       = "speed-inferred"
	IgnitionMethodMultiSignal = "multi-signal"
	IgnitionMethodUnknown     = "unknown"
)

// HasPosition reports whether the reading carries a usable coordinate pair
func (r *Reading) HasPosition() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Time returns the sample instant as a UTC time.Time
func (r *Reading) Time() time.Time {
	return time.Unix(r.Timestamp, 0).UTC()
}

// ReadingsResponse represents a paginated response of readings
type ReadingsResponse struct {
	Data       []Reading `json:"data"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
}
