package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vantrack/fleetsync-go/internal/config"
	"github.com/vantrack/fleetsync-go/internal/models"
	"github.com/vantrack/fleetsync-go/internal/normalizer"
	"github.com/vantrack/fleetsync-go/internal/observability"
	"github.com/vantrack/fleetsync-go/internal/repository"
	"github.com/vantrack/fleetsync-go/internal/spatial"
	"github.com/vantrack/fleetsync-go/internal/vendorapi"
)

// VendorAPI is the slice of the vendor client the sync engine consumes
type VendorAPI interface {
	QueryTrips(ctx context.Context, deviceID string, begin, end time.Time) ([]models.RawTrip, error)
	LastPositions(ctx context.Context, deviceIDs []string) ([]models.RawRecord, error)
}

// Normalizer converts a raw vendor record into a canonical reading
type Normalizer func(models.RawRecord) models.Reading

// SyncService is the per-device incremental trip sync engine. One invocation
// is the unit of idempotent progress: the checkpoint advances only when the
// whole run succeeds.
type SyncService struct {
	client      VendorAPI
	normalize   Normalizer
	trips       *repository.TripRepository
	positions   *repository.PositionRepository
	checkpoints *repository.CheckpointRepository
	positionSvc *PositionService
	eventSvc    *EventService
	cfg         config.SyncConfig

	now func() time.Time
}

// SyncResult summarizes one device's sync run
type SyncResult struct {
	DeviceID         string `json:"device_id"`
	TripsFetched     int    `json:"trips_fetched"`
	TripsInserted    int    `json:"trips_inserted"`
	ReadingsInserted int    `json:"readings_inserted"`
	EventsEmitted    int    `json:"events_emitted"`
	LastSyncedAt     int64  `json:"last_synced_at"`
}

// NewSyncService creates a new sync service
func NewSyncService(
	client VendorAPI,
	normalize Normalizer,
	trips *repository.TripRepository,
	positions *repository.PositionRepository,
	checkpoints *repository.CheckpointRepository,
	positionSvc *PositionService,
	eventSvc *EventService,
	cfg config.SyncConfig,
) *SyncService {
	return &SyncService{
		client:      client,
		normalize:   normalize,
		trips:       trips,
		positions:   positions,
		checkpoints: checkpoints,
		positionSvc: positionSvc,
		eventSvc:    eventSvc,
		cfg:         cfg,
		now:         time.Now,
	}
}

// SyncDevice runs one incremental sync for a device. Concurrent invocations
// for the same device are refused via the checkpoint's running guard; a
// checkpoint stuck in running past the stale timeout is taken over.
func (s *SyncService) SyncDevice(ctx context.Context, deviceID string, forceFull bool) (*SyncResult, error) {
	claimed, err := s.checkpoints.Claim(deviceID, s.cfg.StaleRunningTimeout)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrSyncInProgress
	}

	result, err := s.run(ctx, deviceID, forceFull)
	if err != nil {
		observability.SyncRuns.WithLabelValues("error").Inc()
		if ferr := s.checkpoints.Fail(deviceID, err.Error()); ferr != nil {
			log.Printf("Failed to record sync error for %s: %v", deviceID, ferr)
		}
		return nil, err
	}

	if err := s.checkpoints.Complete(deviceID, result.LastSyncedAt); err != nil {
		observability.SyncRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	observability.SyncRuns.WithLabelValues("ok").Inc()
	return result, nil
}

// run does the fetch/normalize/merge work while the checkpoint is held
func (s *SyncService) run(ctx context.Context, deviceID string, forceFull bool) (*SyncResult, error) {
	cp, err := s.checkpoints.Get(deviceID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	begin := now.AddDate(0, 0, -s.cfg.FullLookbackDays)
	if !forceFull && cp != nil && cp.LastSyncedAt > 0 {
		begin = time.Unix(cp.LastSyncedAt, 0).UTC()
	}

	result := &SyncResult{DeviceID: deviceID}
	if cp != nil {
		result.LastSyncedAt = cp.LastSyncedAt
	}
	if forceFull {
		result.LastSyncedAt = 0
	}

	// Fresh positions first so trip backfill can use them
	records, err := s.client.LastPositions(ctx, []string{deviceID})
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}
	readings := make([]models.Reading, 0, len(records))
	for _, rec := range records {
		if rec.DeviceID != deviceID {
			continue
		}
		readings = append(readings, s.normalize(rec))
	}
	inserted, err := s.positionSvc.Ingest(readings)
	if err != nil {
		return nil, fmt.Errorf("store positions: %w", err)
	}
	result.ReadingsInserted = inserted

	events, err := s.eventSvc.Detect(deviceID, readings)
	if err != nil {
		return nil, fmt.Errorf("detect events: %w", err)
	}
	result.EventsEmitted = len(events)

	rawTrips, err := s.client.QueryTrips(ctx, deviceID, begin, now)
	if err != nil {
		return nil, fmt.Errorf("fetch trips: %w", err)
	}
	result.TripsFetched = len(rawTrips)

	for _, raw := range rawTrips {
		stored, err := s.processTrip(deviceID, raw)
		if err != nil {
			return nil, err
		}
		if stored {
			result.TripsInserted++
		}
		if raw.EndTime > result.LastSyncedAt {
			result.LastSyncedAt = raw.EndTime
		}
	}

	return result, nil
}

// processTrip merges one vendor trip summary into the store
func (s *SyncService) processTrip(deviceID string, raw models.RawTrip) (bool, error) {
	if raw.EndTime <= raw.StartTime {
		log.Printf("Skipping degenerate vendor trip for %s: start=%d end=%d",
			deviceID, raw.StartTime, raw.EndTime)
		return false, nil
	}

	exists, err := s.trips.Exists(deviceID, raw.StartTime, raw.EndTime)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	trip := s.buildTrip(deviceID, raw)

	inserted, err := s.trips.Insert(trip)
	if err != nil {
		return false, err
	}
	if !inserted {
		// Lost an insert race after the existence check; absorbed by the
		// unique constraint, not an error for the run
		log.Printf("%v", &DataIntegrityError{
			DeviceID: deviceID,
			Detail: fmt.Sprintf("trip (%d, %d) appeared between existence check and insert",
				raw.StartTime, raw.EndTime),
		})
		return false, nil
	}

	observability.TripsInserted.Inc()
	return true, nil
}

// buildTrip derives the canonical trip from a vendor summary. Duration is
// strictly end minus start. The vendor's accumulated path length wins over
// any straight-line estimate because it reflects the actual driven path.
func (s *SyncService) buildTrip(deviceID string, raw models.RawTrip) *models.Trip {
	trip := &models.Trip{
		DeviceID:        deviceID,
		StartTime:       raw.StartTime,
		EndTime:         raw.EndTime,
		DurationSeconds: raw.EndTime - raw.StartTime,
		MaxSpeedKmh:     raw.MaxSpeedKnots * normalizer.KnotsToKmh,
		AvgSpeedKmh:     raw.AvgSpeedKnots * normalizer.KnotsToKmh,
		Source:          models.TripSourceVendor,
	}

	trip.StartLat, trip.StartLon = sanitizeEndpoint(raw.StartLat, raw.StartLon)
	trip.EndLat, trip.EndLon = sanitizeEndpoint(raw.EndLat, raw.EndLon)

	// Backfill missing endpoints from stored readings near the trip bounds
	if trip.StartLat == nil {
		if nearest := s.nearestReading(deviceID, raw.StartTime); nearest != nil {
			trip.StartLat, trip.StartLon = nearest.Latitude, nearest.Longitude
		}
	}
	if trip.EndLat == nil {
		if nearest := s.nearestReading(deviceID, raw.EndTime); nearest != nil {
			trip.EndLat, trip.EndLon = nearest.Latitude, nearest.Longitude
		}
	}

	switch {
	case raw.Distance > 0:
		trip.DistanceMeters = raw.Distance
	case trip.HasStartCoords() && trip.HasEndCoords():
		trip.DistanceMeters = spatial.HaversineDistance(
			*trip.StartLat, *trip.StartLon, *trip.EndLat, *trip.EndLon)
	}

	return trip
}

// nearestReading looks up a positioned reading within the backfill window;
// errors degrade to "no reading" because backfill is best-effort
func (s *SyncService) nearestReading(deviceID string, ts int64) *models.Reading {
	reading, err := s.positions.Nearest(deviceID, ts, s.cfg.BackfillWindow)
	if err != nil {
		log.Printf("Nearest-reading lookup failed for %s@%d: %v", deviceID, ts, err)
		return nil
	}
	return reading
}

// sanitizeEndpoint enforces the both-or-neither rule and rejects the
// zero-sentinel pair
func sanitizeEndpoint(lat, lon *float64) (*float64, *float64) {
	if lat == nil || lon == nil {
		return nil, nil
	}
	if *lat == 0 && *lon == 0 {
		return nil, nil
	}
	return lat, lon
}

// SyncAll runs every known device, isolating per-device failures so one bad
// device never stops the fleet
func (s *SyncService) SyncAll(ctx context.Context, forceFull bool) []SyncResult {
	devices := s.deviceList()

	var results []SyncResult
	for _, deviceID := range devices {
		if ctx.Err() != nil {
			break
		}
		result, err := s.SyncDevice(ctx, deviceID, forceFull)
		if err != nil {
			// Already recorded on the device's checkpoint
			log.Printf("Sync failed for device %s: %v", deviceID, err)
			continue
		}
		results = append(results, *result)
	}

	return results
}

// deviceList merges the configured fleet with devices already carrying a
// checkpoint
func (s *SyncService) deviceList() []string {
	seen := make(map[string]bool)
	var devices []string

	for _, d := range s.cfg.Devices {
		if !seen[d] {
			seen[d] = true
			devices = append(devices, d)
		}
	}

	checkpoints, err := s.checkpoints.GetAll()
	if err != nil {
		log.Printf("Failed to list checkpoints: %v", err)
		return devices
	}
	for _, cp := range checkpoints {
		if !seen[cp.DeviceID] {
			seen[cp.DeviceID] = true
			devices = append(devices, cp.DeviceID)
		}
	}

	return devices
}

// Checkpoint exposes a device's sync cursor for the API
func (s *SyncService) Checkpoint(deviceID string) (*models.SyncCheckpoint, error) {
	return s.checkpoints.Get(deviceID)
}

var _ VendorAPI = (*vendorapi.Client)(nil)
