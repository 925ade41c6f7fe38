package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantrack/fleetsync-go/internal/models"
	"github.com/vantrack/fleetsync-go/internal/repository"
)

type reconcileFixture struct {
	svc       *ReconcileService
	trips     *repository.TripRepository
	positions *repository.PositionRepository
	reports   *repository.ReportRepository
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	db := newTestDB(t)
	f := &reconcileFixture{
		trips:     repository.NewTripRepository(db),
		positions: repository.NewPositionRepository(db),
		reports:   repository.NewReportRepository(db),
	}
	f.svc = NewReconcileService(f.trips, f.positions, f.reports, 15*time.Minute)
	return f
}

func (f *reconcileFixture) insertTripMissingCoords(t *testing.T, deviceID string, start, end int64) *models.Trip {
	t.Helper()
	trip := &models.Trip{
		DeviceID:        deviceID,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: end - start,
		Source:          models.TripSourceVendor,
	}
	inserted, err := f.trips.Insert(trip)
	require.NoError(t, err)
	require.True(t, inserted)
	return trip
}

func (f *reconcileFixture) storeReading(t *testing.T, deviceID string, ts int64, lat, lon float64) {
	t.Helper()
	_, err := f.positions.Append([]models.Reading{{
		DeviceID:  deviceID,
		Timestamp: ts,
		Latitude:  floatPtr(lat),
		Longitude: floatPtr(lon),
		Online:    true,
	}})
	require.NoError(t, err)
}

func TestReconcileBackfillsFromNearbyReadings(t *testing.T) {
	f := newReconcileFixture(t)

	trip := f.insertTripMissingCoords(t, "d1", 1000, 1600)
	f.storeReading(t, "d1", 1100, 52.5, 13.4) // near start
	f.storeReading(t, "d1", 1550, 52.6, 13.5) // near end

	report, err := f.svc.Reconcile(context.Background(), "d1",
		time.Unix(0, 0), time.Unix(5000, 0))
	require.NoError(t, err)

	assert.Equal(t, 1, report.TripsChecked)
	assert.Equal(t, 1, report.TripsFixed)
	assert.Equal(t, 2, report.CoordinatesBackfilled)
	assert.Empty(t, report.Errors)
	assert.NotEmpty(t, report.RunID)

	got, err := f.trips.GetTripByID(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 52.5, *got.StartLat)
	assert.Equal(t, 52.6, *got.EndLat)
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newReconcileFixture(t)

	f.insertTripMissingCoords(t, "d1", 1000, 1600)
	f.storeReading(t, "d1", 1100, 52.5, 13.4)
	f.storeReading(t, "d1", 1550, 52.6, 13.5)

	first, err := f.svc.Reconcile(context.Background(), "d1",
		time.Unix(0, 0), time.Unix(5000, 0))
	require.NoError(t, err)
	require.Equal(t, 2, first.CoordinatesBackfilled)

	second, err := f.svc.Reconcile(context.Background(), "d1",
		time.Unix(0, 0), time.Unix(5000, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, second.TripsChecked, "repaired trips drop out of the missing set")
	assert.Equal(t, 0, second.CoordinatesBackfilled)
	assert.Equal(t, 0, second.TripsFixed)
}

func TestReconcileLeavesNullWhenNoReadingNearby(t *testing.T) {
	f := newReconcileFixture(t)

	trip := f.insertTripMissingCoords(t, "d1", 1000, 1600)
	// Closest reading is an hour away, outside the ±15m window
	f.storeReading(t, "d1", 5200, 52.5, 13.4)

	report, err := f.svc.Reconcile(context.Background(), "d1",
		time.Unix(0, 0), time.Unix(5000, 0))
	require.NoError(t, err)

	assert.Equal(t, 1, report.TripsChecked)
	assert.Equal(t, 0, report.TripsFixed)
	assert.Equal(t, 0, report.CoordinatesBackfilled)
	assert.Empty(t, report.Errors, "a missing reading is not an error")

	got, err := f.trips.GetTripByID(trip.ID)
	require.NoError(t, err)
	assert.False(t, got.HasStartCoords(), "no fabricated positions")
}

func TestReconcileFleetWideScope(t *testing.T) {
	f := newReconcileFixture(t)

	f.insertTripMissingCoords(t, "d1", 1000, 1600)
	f.insertTripMissingCoords(t, "d2", 2000, 2600)
	f.storeReading(t, "d1", 1100, 52.5, 13.4)
	f.storeReading(t, "d2", 2100, 48.1, 11.5)

	report, err := f.svc.Reconcile(context.Background(), "",
		time.Unix(0, 0), time.Unix(5000, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, report.TripsChecked)
	assert.Equal(t, 2, report.TripsFixed)
}

func TestReconcilePersistsReport(t *testing.T) {
	f := newReconcileFixture(t)

	f.insertTripMissingCoords(t, "d1", 1000, 1600)
	f.storeReading(t, "d1", 1100, 52.5, 13.4)

	report, err := f.svc.Reconcile(context.Background(), "d1",
		time.Unix(0, 0), time.Unix(5000, 0))
	require.NoError(t, err)

	stored, err := f.svc.Report(report.RunID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, report.TripsChecked, stored.TripsChecked)
	assert.Equal(t, report.CoordinatesBackfilled, stored.CoordinatesBackfilled)
	assert.Equal(t, "d1", stored.DeviceID)

	missing, err := f.svc.Report("no-such-run")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
