package models

import "time"

// SyncCheckpoint is the per-device cursor for incremental trip sync
type SyncCheckpoint struct {
	DeviceID     string    `json:"device_id" db:"device_id"`
	LastSyncedAt int64     `json:"last_synced_at" db:"last_synced_at"` // Unix timestamp; 0 = never synced
	Status       string    `json:"status" db:"status"`                 // idle, running, error
	LastError    string    `json:"last_error,omitempty" db:"last_error"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Checkpoint status constants
const (
	SyncStatusIdle    = "idle"
	SyncStatusRunning = "running"
	SyncStatusError   = "error"
)
