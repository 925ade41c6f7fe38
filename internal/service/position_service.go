package service

import (
	"sort"

	"github.com/vantrack/fleetsync-go/internal/config"
	"github.com/vantrack/fleetsync-go/internal/models"
	"github.com/vantrack/fleetsync-go/internal/observability"
	"github.com/vantrack/fleetsync-go/internal/repository"
	"github.com/vantrack/fleetsync-go/internal/spatial"
)

// PositionService applies the write policy in front of the position store:
// a reading is persisted only when the device moved far enough or enough
// time passed, with a looser interval while stationary so parked vehicles
// do not flood storage with near-duplicate samples.
type PositionService struct {
	repo *repository.PositionRepository
	cfg  config.PositionConfig
}

// NewPositionService creates a new position service
func NewPositionService(repo *repository.PositionRepository, cfg config.PositionConfig) *PositionService {
	return &PositionService{repo: repo, cfg: cfg}
}

// Ingest filters a batch through the write policy and appends the keepers.
// Returns the number of rows actually inserted; duplicates absorb silently.
func (s *PositionService) Ingest(readings []models.Reading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	byDevice := make(map[string][]models.Reading)
	for _, r := range readings {
		byDevice[r.DeviceID] = append(byDevice[r.DeviceID], r)
	}

	var keep []models.Reading
	for deviceID, batch := range byDevice {
		sort.Slice(batch, func(i, j int) bool { return batch[i].Timestamp < batch[j].Timestamp })

		prev, err := s.repo.Last(deviceID)
		if err != nil {
			return 0, err
		}
		for i := range batch {
			if s.shouldPersist(prev, &batch[i]) {
				keep = append(keep, batch[i])
				prev = &batch[i]
			}
		}
	}

	inserted, err := s.repo.Append(keep)
	if err != nil {
		return inserted, err
	}
	observability.ReadingsInserted.Add(float64(inserted))
	return inserted, nil
}

// shouldPersist decides whether a reading adds information over the last
// persisted one
func (s *PositionService) shouldPersist(prev, cur *models.Reading) bool {
	if prev == nil {
		return true
	}

	elapsed := cur.Timestamp - prev.Timestamp
	if elapsed < 0 {
		// Out-of-order arrival; the unique constraint decides
		return true
	}

	minInterval := s.cfg.MinInterval
	if cur.SpeedKmh == 0 && prev.SpeedKmh == 0 {
		minInterval = s.cfg.StationaryMinInterval
	}
	if elapsed >= int64(minInterval.Seconds()) {
		return true
	}

	if prev.HasPosition() && cur.HasPosition() {
		moved := spatial.HaversineDistance(
			*prev.Latitude, *prev.Longitude, *cur.Latitude, *cur.Longitude)
		if moved >= s.cfg.MinMoveMeters {
			return true
		}
	}

	return false
}
