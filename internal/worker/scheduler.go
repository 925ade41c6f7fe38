package worker

import (
	"context"
	"log"
	"time"

	"github.com/vantrack/fleetsync-go/internal/service"
)

// Scheduler drives periodic fleet-wide sync runs. Invocations are stateless;
// all progress lives in the per-device checkpoints, so overlapping schedules
// and restarts are safe.
type Scheduler struct {
	sync     *service.SyncService
	interval time.Duration

	stopCh chan struct{}
}

// NewScheduler creates a new sync scheduler
func NewScheduler(sync *service.SyncService, interval time.Duration) *Scheduler {
	return &Scheduler{
		sync:     sync,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the periodic loop until ctx is cancelled or Stop is called.
// Each run carries a deadline of one interval so a stuck run cannot pile
// up behind the next tick.
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("[Scheduler] Starting fleet sync every %s", s.interval)

	// First run immediately; the ticker covers the rest
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Scheduler] Context cancelled, stopping")
			return
		case <-s.stopCh:
			log.Println("[Scheduler] Stop signal received, stopping")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	results := s.sync.SyncAll(runCtx, false)

	var trips, readings int
	for _, r := range results {
		trips += r.TripsInserted
		readings += r.ReadingsInserted
	}
	log.Printf("[Scheduler] Run finished: %d devices, %d new trips, %d new readings",
		len(results), trips, readings)
}
