package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vantrack/fleetsync-go/internal/models"
)

// ReportRepository persists reconciliation run reports
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Save stores a finished reconciliation report
func (r *ReportRepository) Save(report *models.ReconcileReport) error {
	errorsJSON, err := json.Marshal(report.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal report errors: %w", err)
	}
	if report.Errors == nil {
		errorsJSON = []byte("[]")
	}

	_, err = r.db.Exec(`
		INSERT INTO reconcile_reports (
			run_id, device_id, range_from, range_to,
			trips_checked, trips_fixed, coordinates_backfilled,
			errors_json, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.DeviceID, report.From, report.To,
		report.TripsChecked, report.TripsFixed, report.CoordinatesBackfilled,
		string(errorsJSON),
		report.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		report.FinishedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to save reconcile report: %w", err)
	}
	return nil
}

// Get retrieves a report by run ID, or nil when unknown
func (r *ReportRepository) Get(runID string) (*models.ReconcileReport, error) {
	var report models.ReconcileReport
	var errorsJSON, startedAt, finishedAt string

	err := r.db.QueryRow(`
		SELECT run_id, device_id, range_from, range_to,
			trips_checked, trips_fixed, coordinates_backfilled,
			errors_json, started_at, finished_at
		FROM reconcile_reports WHERE run_id = ?`,
		runID,
	).Scan(
		&report.RunID, &report.DeviceID, &report.From, &report.To,
		&report.TripsChecked, &report.TripsFixed, &report.CoordinatesBackfilled,
		&errorsJSON, &startedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reconcile report: %w", err)
	}

	if err := json.Unmarshal([]byte(errorsJSON), &report.Errors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report errors: %w", err)
	}
	report.StartedAt, _ = time.Parse("2006-01-02 15:04:05", startedAt)
	report.FinishedAt, _ = time.Parse("2006-01-02 15:04:05", finishedAt)

	return &report, nil
}
