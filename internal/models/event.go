package models

import "time"

// Event represents a discrete occurrence derived from consecutive readings
type Event struct {
	ID        int64    `json:"id" db:"id"`
	DeviceID  string   `json:"device_id" db:"device_id"`
	Type      string   `json:"type" db:"type"`
	Severity  string   `json:"severity" db:"severity"`
	Timestamp int64    `json:"timestamp" db:"timestamp"` // Unix timestamp of the reading that triggered it
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Event type constants
const (
	EventTypeIgnitionOn  = "ignition-on"
	EventTypeIgnitionOff = "ignition-off"
	EventTypeOnline      = "online"
	EventTypeOffline     = "offline"
)

// Event severity constants
const (
	EventSeverityInfo    = "info"
	EventSeverityWarning = "warning"
)

// DefaultEventCooldown suppresses repeat events of the same (device, type)
const DefaultEventCooldown = 5 * time.Minute

// EventsResponse represents a paginated response of events
type EventsResponse struct {
	Data       []Event `json:"data"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
}
