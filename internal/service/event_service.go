package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/vantrack/fleetsync-go/internal/models"
	"github.com/vantrack/fleetsync-go/internal/observability"
	"github.com/vantrack/fleetsync-go/internal/repository"
)

// EventService derives discrete lifecycle events from consecutive readings.
// Transitions are evaluated in recorded-timestamp order, not arrival order,
// because vendor delivery may be batched or out of order.
type EventService struct {
	events    *repository.EventRepository
	positions *repository.PositionRepository
	cooldown  time.Duration
}

// NewEventService creates a new event service
func NewEventService(events *repository.EventRepository, positions *repository.PositionRepository, cooldown time.Duration) *EventService {
	if cooldown <= 0 {
		cooldown = models.DefaultEventCooldown
	}
	return &EventService{events: events, positions: positions, cooldown: cooldown}
}

// Detect walks a device's new readings and emits transition events, each
// subject to the per-(device, type) cooldown. Returns the events stored.
func (s *EventService) Detect(deviceID string, readings []models.Reading) ([]models.Event, error) {
	if len(readings) == 0 {
		return nil, nil
	}

	ordered := make([]models.Reading, len(readings))
	copy(ordered, readings)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Timestamp < ordered[j].Timestamp })

	// Seed the previous state from the last reading stored before this batch
	var prevIgnition *bool
	var prevOnline *bool
	if seed, err := s.positions.LastBefore(deviceID, ordered[0].Timestamp); err != nil {
		return nil, err
	} else if seed != nil {
		prevIgnition = seed.Ignition
		online := seed.Online
		prevOnline = &online
	}

	lastEmitted := make(map[string]int64)

	var emitted []models.Event
	for i := range ordered {
		cur := &ordered[i]

		if cur.Ignition != nil {
			if prevIgnition != nil && *prevIgnition != *cur.Ignition {
				eventType := models.EventTypeIgnitionOff
				if *cur.Ignition {
					eventType = models.EventTypeIgnitionOn
				}
				ev, err := s.emit(deviceID, eventType, cur, lastEmitted)
				if err != nil {
					return emitted, err
				}
				if ev != nil {
					emitted = append(emitted, *ev)
				}
			}
			prevIgnition = cur.Ignition
		}

		if prevOnline != nil && *prevOnline != cur.Online {
			eventType := models.EventTypeOffline
			if cur.Online {
				eventType = models.EventTypeOnline
			}
			ev, err := s.emit(deviceID, eventType, cur, lastEmitted)
			if err != nil {
				return emitted, err
			}
			if ev != nil {
				emitted = append(emitted, *ev)
			}
		}
		online := cur.Online
		prevOnline = &online
	}

	return emitted, nil
}

// emit stores one event unless a same-type event fell within the cooldown
func (s *EventService) emit(deviceID, eventType string, reading *models.Reading, lastEmitted map[string]int64) (*models.Event, error) {
	last, seen := lastEmitted[eventType]
	if !seen {
		stored, err := s.events.LastEventTime(deviceID, eventType)
		if err != nil {
			return nil, err
		}
		last = stored
		lastEmitted[eventType] = stored
	}

	if last > 0 && reading.Timestamp-last < int64(s.cooldown.Seconds()) {
		// Flapping signal; suppress
		return nil, nil
	}

	event := &models.Event{
		DeviceID:  deviceID,
		Type:      eventType,
		Severity:  severityFor(eventType),
		Timestamp: reading.Timestamp,
		Latitude:  reading.Latitude,
		Longitude: reading.Longitude,
	}
	if err := s.events.Insert(event); err != nil {
		return nil, fmt.Errorf("failed to store %s event: %w", eventType, err)
	}

	lastEmitted[eventType] = reading.Timestamp
	observability.EventsEmitted.WithLabelValues(eventType).Inc()
	return event, nil
}

func severityFor(eventType string) string {
	if eventType == models.EventTypeOffline {
		return models.EventSeverityWarning
	}
	return models.EventSeverityInfo
}
