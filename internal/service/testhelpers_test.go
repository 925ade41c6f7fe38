package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vantrack/fleetsync-go/internal/config"
	"github.com/vantrack/fleetsync-go/internal/database"
	"github.com/vantrack/fleetsync-go/internal/models"
	"github.com/vantrack/fleetsync-go/internal/normalizer"
	"github.com/vantrack/fleetsync-go/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

// fakeVendor serves canned trip and position batches, counting calls
type fakeVendor struct {
	trips     []models.RawTrip
	positions []models.RawRecord

	tripErr error

	tripCalls     int
	positionCalls int

	lastBegin time.Time
	lastEnd   time.Time
}

func (f *fakeVendor) QueryTrips(ctx context.Context, deviceID string, begin, end time.Time) ([]models.RawTrip, error) {
	f.tripCalls++
	f.lastBegin, f.lastEnd = begin, end
	if f.tripErr != nil {
		return nil, f.tripErr
	}
	return f.trips, nil
}

func (f *fakeVendor) LastPositions(ctx context.Context, deviceIDs []string) ([]models.RawRecord, error) {
	f.positionCalls++
	return f.positions, nil
}

// syncFixture wires a sync service over an in-memory store and a fake vendor
type syncFixture struct {
	vendor      *fakeVendor
	sync        *SyncService
	trips       *repository.TripRepository
	positions   *repository.PositionRepository
	checkpoints *repository.CheckpointRepository
	events      *repository.EventRepository
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	db := newTestDB(t)

	f := &syncFixture{
		vendor:      &fakeVendor{},
		trips:       repository.NewTripRepository(db),
		positions:   repository.NewPositionRepository(db),
		checkpoints: repository.NewCheckpointRepository(db),
		events:      repository.NewEventRepository(db),
	}

	cfg := config.SyncConfig{
		FullLookbackDays:    30,
		StaleRunningTimeout: 30 * time.Minute,
		BackfillWindow:      15 * time.Minute,
		EventCooldown:       5 * time.Minute,
	}
	positionCfg := config.PositionConfig{
		MinMoveMeters:         15,
		MinInterval:           time.Minute,
		StationaryMinInterval: 10 * time.Minute,
	}

	positionSvc := NewPositionService(f.positions, positionCfg)
	eventSvc := NewEventService(f.events, f.positions, cfg.EventCooldown)

	f.sync = NewSyncService(
		f.vendor, normalizer.Normalize,
		f.trips, f.positions, f.checkpoints,
		positionSvc, eventSvc, cfg,
	)
	return f
}
