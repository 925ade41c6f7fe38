package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/vantrack/fleetsync-go/internal/models"
	"github.com/vantrack/fleetsync-go/internal/observability"
	"github.com/vantrack/fleetsync-go/internal/repository"
)

// ReconcileService is the batch repair job for trips stored without endpoint
// coordinates. It is deliberately separate from the sync engine: it never
// calls the vendor trip API and never touches checkpoints, so it is safe to
// re-run over arbitrary historical windows.
type ReconcileService struct {
	trips          *repository.TripRepository
	positions      *repository.PositionRepository
	reports        *repository.ReportRepository
	backfillWindow time.Duration

	now func() time.Time
}

// NewReconcileService creates a new reconciliation service
func NewReconcileService(
	trips *repository.TripRepository,
	positions *repository.PositionRepository,
	reports *repository.ReportRepository,
	backfillWindow time.Duration,
) *ReconcileService {
	return &ReconcileService{
		trips:          trips,
		positions:      positions,
		reports:        reports,
		backfillWindow: backfillWindow,
		now:            time.Now,
	}
}

// Reconcile repairs missing trip coordinates for a device (empty = fleet)
// over [from, to]. Writes are conditional on the coordinate still being null,
// so repeated runs over the same range are no-ops. A single trip's failure is
// collected into the report, never aborting the batch.
func (s *ReconcileService) Reconcile(ctx context.Context, deviceID string, from, to time.Time) (*models.ReconcileReport, error) {
	report := &models.ReconcileReport{
		RunID:     uuid.NewString(),
		DeviceID:  deviceID,
		From:      from.Unix(),
		To:        to.Unix(),
		StartedAt: s.now().UTC(),
	}

	trips, err := s.trips.MissingCoordinates(deviceID, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("list trips missing coordinates: %w", err)
	}

	for i := range trips {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("run cancelled with %d trips unchecked", len(trips)-i))
			break
		}
		s.repairTrip(&trips[i], report)
	}

	report.FinishedAt = s.now().UTC()
	if err := s.reports.Save(report); err != nil {
		// The repair work itself succeeded; report the run anyway
		log.Printf("Failed to persist reconcile report %s: %v", report.RunID, err)
	}

	return report, nil
}

// repairTrip backfills whichever endpoints of one trip are still missing
func (s *ReconcileService) repairTrip(trip *models.Trip, report *models.ReconcileReport) {
	report.TripsChecked++
	fixed := false

	if !trip.HasStartCoords() {
		changed, err := s.backfillEndpoint(trip.DeviceID, trip.StartTime, trip.ID, s.trips.BackfillStartCoordinates)
		if err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("trip %d start: %v", trip.ID, err))
		} else if changed {
			report.CoordinatesBackfilled++
			fixed = true
		}
	}

	if !trip.HasEndCoords() {
		changed, err := s.backfillEndpoint(trip.DeviceID, trip.EndTime, trip.ID, s.trips.BackfillEndCoordinates)
		if err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("trip %d end: %v", trip.ID, err))
		} else if changed {
			report.CoordinatesBackfilled++
			fixed = true
		}
	}

	if fixed {
		report.TripsFixed++
	}
}

// backfillEndpoint finds the nearest positioned reading and applies the
// conditional write. No reading within the window is not an error; the trip
// keeps its null sentinel rather than a fabricated position.
func (s *ReconcileService) backfillEndpoint(
	deviceID string,
	ts int64,
	tripID int64,
	write func(id int64, lat, lon float64) (bool, error),
) (bool, error) {
	reading, err := s.positions.Nearest(deviceID, ts, s.backfillWindow)
	if err != nil {
		return false, err
	}
	if reading == nil {
		return false, nil
	}

	changed, err := write(tripID, *reading.Latitude, *reading.Longitude)
	if err != nil {
		return false, err
	}
	if changed {
		observability.CoordinatesBackfilled.Inc()
	}
	return changed, nil
}

// Report retrieves a persisted run report by ID
func (s *ReconcileService) Report(runID string) (*models.ReconcileReport, error) {
	return s.reports.Get(runID)
}
