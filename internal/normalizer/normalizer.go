package normalizer

import (
	"github.com/vantrack/fleetsync-go/internal/models"
)

// KnotsToKmh converts the vendor's speed unit to the canonical one
const KnotsToKmh = 1.852

// MinMovementSpeedKmh is the GPS-jitter floor; anything below stores as zero
const MinMovementSpeedKmh = 3.0

// Normalize converts one raw vendor record into a canonical Reading.
// Pure: no storage, no clock, no network.
func Normalize(raw models.RawRecord) models.Reading {
	reading := models.Reading{
		DeviceID:   raw.DeviceID,
		Timestamp:  raw.DeviceTime,
		SpeedKmh:   normalizeSpeed(raw.SpeedKnots),
		BatteryPct: raw.BatteryPct,
		Online:     raw.Online,
	}

	if validCoordinates(raw.Latitude, raw.Longitude) {
		lat, lon := raw.Latitude, raw.Longitude
		reading.Latitude = &lat
		reading.Longitude = &lon
	}

	ignition, confidence, method := DetectIgnition(raw, reading.SpeedKmh)
	reading.Ignition = ignition
	reading.IgnitionConfidence = confidence
	reading.IgnitionMethod = method

	return reading
}

// normalizeSpeed converts knots to km/h and clamps jitter below the movement floor
func normalizeSpeed(knots float64) float64 {
	if knots < 0 {
		return 0
	}
	kmh := knots * KnotsToKmh
	if kmh < MinMovementSpeedKmh {
		return 0
	}
	return kmh
}

// validCoordinates rejects the vendor's 0/0 no-fix sentinel and out-of-range values
func validCoordinates(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}
