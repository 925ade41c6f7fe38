package models

import "time"

// ReconcileReport summarizes one reconciliation/backfill run
type ReconcileReport struct {
	RunID    string `json:"run_id" db:"run_id"`
	DeviceID string `json:"device_id,omitempty" db:"device_id"` // empty = fleet-wide
	From     int64  `json:"from" db:"range_from"`               // Unix timestamp
	To       int64  `json:"to" db:"range_to"`                   // Unix timestamp

	TripsChecked          int `json:"trips_checked" db:"trips_checked"`
	TripsFixed            int `json:"trips_fixed" db:"trips_fixed"`
	CoordinatesBackfilled int `json:"coordinates_backfilled" db:"coordinates_backfilled"`

	// Per-trip failures; a single bad trip never aborts the run
	Errors []string `json:"errors,omitempty" db:"-"`

	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}
