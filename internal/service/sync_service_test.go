package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantrack/fleetsync-go/internal/models"
)

const (
	tripStart = int64(1700000000)
	tripEnd   = tripStart + 300
)

func fixedNow() time.Time { return time.Unix(tripEnd+3600, 0).UTC() }

func vendorTripNoCoords() models.RawTrip {
	return models.RawTrip{
		DeviceID:  "d1",
		StartTime: tripStart,
		EndTime:   tripEnd,
		Distance:  2500,
	}
}

func vendorPositionAt(ts int64) models.RawRecord {
	bits := int64(1)
	return models.RawRecord{
		DeviceID:   "d1",
		DeviceTime: ts,
		Latitude:   52.5,
		Longitude:  13.4,
		SpeedKnots: 10,
		StatusBits: &bits,
		Online:     true,
	}
}

func TestSyncDeviceStoresTripWithBackfilledEndpoints(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.now = fixedNow
	f.vendor.trips = []models.RawTrip{vendorTripNoCoords()}
	f.vendor.positions = []models.RawRecord{vendorPositionAt(tripStart + 100)}

	result, err := f.sync.SyncDevice(context.Background(), "d1", false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TripsFetched)
	assert.Equal(t, 1, result.TripsInserted)
	assert.Equal(t, 1, result.ReadingsInserted)
	assert.Equal(t, tripEnd, result.LastSyncedAt)

	trips, _, err := f.trips.GetTrips(models.TripFilter{DeviceID: "d1"})
	require.NoError(t, err)
	require.Len(t, trips, 1)

	trip := trips[0]
	assert.Equal(t, int64(300), trip.DurationSeconds, "duration is strictly end minus start")
	assert.Equal(t, 2500.0, trip.DistanceMeters, "vendor path length wins over straight-line")
	require.True(t, trip.HasStartCoords(), "start must be backfilled from the nearby reading")
	assert.Equal(t, 52.5, *trip.StartLat)
	require.True(t, trip.HasEndCoords())
	assert.Equal(t, models.TripSourceVendor, trip.Source)

	cp, err := f.checkpoints.Get("d1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusIdle, cp.Status)
	assert.Equal(t, tripEnd, cp.LastSyncedAt)
}

func TestSyncDeviceSecondRunIsNoOp(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.now = fixedNow
	f.vendor.trips = []models.RawTrip{vendorTripNoCoords()}
	f.vendor.positions = []models.RawRecord{vendorPositionAt(tripStart + 100)}

	_, err := f.sync.SyncDevice(context.Background(), "d1", false)
	require.NoError(t, err)

	result, err := f.sync.SyncDevice(context.Background(), "d1", false)
	require.NoError(t, err)

	assert.Equal(t, 0, result.TripsInserted, "trip already stored")
	assert.Equal(t, 0, result.ReadingsInserted, "reading already stored")
	assert.Equal(t, tripEnd, result.LastSyncedAt, "checkpoint must not move without new trips")

	_, total, err := f.trips.GetTrips(models.TripFilter{DeviceID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestSyncDeviceIncrementalWindowStartsAtCheckpoint(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.now = fixedNow
	f.vendor.trips = []models.RawTrip{vendorTripNoCoords()}

	_, err := f.sync.SyncDevice(context.Background(), "d1", false)
	require.NoError(t, err)
	assert.Equal(t, fixedNow().AddDate(0, 0, -30), f.vendor.lastBegin,
		"first sync covers the full lookback")

	_, err = f.sync.SyncDevice(context.Background(), "d1", false)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(tripEnd, 0).UTC(), f.vendor.lastBegin,
		"subsequent syncs resume from the cursor")
	assert.Equal(t, fixedNow(), f.vendor.lastEnd)
}

func TestSyncDeviceForceFullRescansLookback(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.now = fixedNow
	f.vendor.trips = []models.RawTrip{vendorTripNoCoords()}

	_, err := f.sync.SyncDevice(context.Background(), "d1", false)
	require.NoError(t, err)

	result, err := f.sync.SyncDevice(context.Background(), "d1", true)
	require.NoError(t, err)
	assert.Equal(t, fixedNow().AddDate(0, 0, -30), f.vendor.lastBegin)
	assert.Equal(t, 0, result.TripsInserted, "rescan finds only known trips")
	assert.Equal(t, tripEnd, result.LastSyncedAt)
}

func TestSyncDeviceRefusedWhileRunning(t *testing.T) {
	f := newSyncFixture(t)

	won, err := f.checkpoints.Claim("d1", 30*time.Minute)
	require.NoError(t, err)
	require.True(t, won)

	_, err = f.sync.SyncDevice(context.Background(), "d1", false)
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestSyncDeviceFailureRecordsOnCheckpoint(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.now = fixedNow
	f.vendor.tripErr = errors.New("vendor unreachable")

	_, err := f.sync.SyncDevice(context.Background(), "d1", false)
	require.Error(t, err)

	cp, err := f.checkpoints.Get("d1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, cp.Status)
	assert.Contains(t, cp.LastError, "vendor unreachable")
	assert.Equal(t, int64(0), cp.LastSyncedAt, "failed run must not advance the cursor")

	// The errored device is claimable again once the vendor recovers
	f.vendor.tripErr = nil
	f.vendor.trips = []models.RawTrip{vendorTripNoCoords()}
	result, err := f.sync.SyncDevice(context.Background(), "d1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TripsInserted)
}

func TestSyncDeviceSkipsDegenerateTrips(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.now = fixedNow
	f.vendor.trips = []models.RawTrip{
		{DeviceID: "d1", StartTime: tripStart, EndTime: tripStart}, // zero length
		{DeviceID: "d1", StartTime: tripEnd, EndTime: tripStart},   // inverted
		vendorTripNoCoords(),
	}

	result, err := f.sync.SyncDevice(context.Background(), "d1", false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TripsFetched)
	assert.Equal(t, 1, result.TripsInserted)
}

func TestSyncDeviceFallsBackToStraightLineDistance(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.now = fixedNow
	f.vendor.trips = []models.RawTrip{{
		DeviceID:  "d1",
		StartTime: tripStart,
		EndTime:   tripEnd,
		StartLat:  floatPtr(52.5200),
		StartLon:  floatPtr(13.4050),
		EndLat:    floatPtr(52.5300),
		EndLon:    floatPtr(13.4050),
	}}

	_, err := f.sync.SyncDevice(context.Background(), "d1", false)
	require.NoError(t, err)

	trips, _, err := f.trips.GetTrips(models.TripFilter{DeviceID: "d1"})
	require.NoError(t, err)
	require.Len(t, trips, 1)
	// 0.01 degrees of latitude is roughly 1.11 km
	assert.InDelta(t, 1112, trips[0].DistanceMeters, 15)
}

func TestSyncDeviceRejectsZeroSentinelEndpoints(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.now = fixedNow
	zero := floatPtr(0)
	f.vendor.trips = []models.RawTrip{{
		DeviceID:  "d1",
		StartTime: tripStart,
		EndTime:   tripEnd,
		Distance:  500,
		StartLat:  zero,
		StartLon:  zero,
		EndLat:    zero,
		EndLon:    zero,
	}}

	_, err := f.sync.SyncDevice(context.Background(), "d1", false)
	require.NoError(t, err)

	trips, _, err := f.trips.GetTrips(models.TripFilter{DeviceID: "d1"})
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.False(t, trips[0].HasStartCoords(), "0/0 is the no-fix sentinel, not a position")
	assert.False(t, trips[0].HasEndCoords())
}

func TestSyncAllIsolatesDeviceFailures(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.now = fixedNow
	f.sync.cfg.Devices = []string{"bad", "good"}

	// Pre-claim "bad" so its sync is refused while "good" proceeds
	won, err := f.checkpoints.Claim("bad", 30*time.Minute)
	require.NoError(t, err)
	require.True(t, won)

	f.vendor.trips = []models.RawTrip{vendorTripNoCoords()}

	results := f.sync.SyncAll(context.Background(), false)
	require.Len(t, results, 1)
	assert.Equal(t, "good", results[0].DeviceID)
}
