package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantrack/fleetsync-go/internal/models"
)

func sampleReading(deviceID string, ts int64, lat, lon float64) models.Reading {
	return models.Reading{
		DeviceID:       deviceID,
		Timestamp:      ts,
		Latitude:       floatPtr(lat),
		Longitude:      floatPtr(lon),
		SpeedKmh:       42,
		Ignition:       boolPtr(true),
		IgnitionMethod: models.IgnitionMethodBitField,
		Online:         true,
	}
}

func TestAppendDeduplicatesByDeviceAndTimestamp(t *testing.T) {
	repo := NewPositionRepository(newTestDB(t))

	r1 := sampleReading("d1", 1000, 52.5, 13.4)
	r2 := sampleReading("d1", 1000, 99.9, 99.9) // same key, different payload

	inserted, err := repo.Append([]models.Reading{r1})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = repo.Append([]models.Reading{r1, r2})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted, "duplicates absorb silently")

	readings, total, err := repo.GetReadings("d1", models.ReadingFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, readings, 1)
	assert.Equal(t, 52.5, *readings[0].Latitude, "first write wins")
}

func TestAppendSeparateDevicesDoNotCollide(t *testing.T) {
	repo := NewPositionRepository(newTestDB(t))

	inserted, err := repo.Append([]models.Reading{
		sampleReading("d1", 1000, 52.5, 13.4),
		sampleReading("d2", 1000, 48.1, 11.5),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
}

func TestNearestPicksClosestInTime(t *testing.T) {
	repo := NewPositionRepository(newTestDB(t))

	_, err := repo.Append([]models.Reading{
		sampleReading("d1", 1000, 52.1, 13.1),
		sampleReading("d1", 1400, 52.2, 13.2),
		sampleReading("d1", 2100, 52.3, 13.3),
	})
	require.NoError(t, err)

	nearest, err := repo.Nearest("d1", 1500, 15*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, nearest)
	assert.Equal(t, int64(1400), nearest.Timestamp)
}

func TestNearestRespectsWindow(t *testing.T) {
	repo := NewPositionRepository(newTestDB(t))

	_, err := repo.Append([]models.Reading{sampleReading("d1", 1000, 52.1, 13.1)})
	require.NoError(t, err)

	nearest, err := repo.Nearest("d1", 1000+3600, 15*time.Minute)
	require.NoError(t, err)
	assert.Nil(t, nearest, "reading an hour away is outside ±15m")
}

func TestNearestSkipsReadingsWithoutPosition(t *testing.T) {
	repo := NewPositionRepository(newTestDB(t))

	noFix := models.Reading{DeviceID: "d1", Timestamp: 1500, IgnitionMethod: models.IgnitionMethodUnknown}
	_, err := repo.Append([]models.Reading{noFix, sampleReading("d1", 1900, 52.2, 13.2)})
	require.NoError(t, err)

	nearest, err := repo.Nearest("d1", 1500, 15*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, nearest)
	assert.Equal(t, int64(1900), nearest.Timestamp, "positionless reading must be skipped")
}

func TestLastBefore(t *testing.T) {
	repo := NewPositionRepository(newTestDB(t))

	_, err := repo.Append([]models.Reading{
		sampleReading("d1", 1000, 52.1, 13.1),
		sampleReading("d1", 2000, 52.2, 13.2),
	})
	require.NoError(t, err)

	prev, err := repo.LastBefore("d1", 2000)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, int64(1000), prev.Timestamp)

	prev, err = repo.LastBefore("d1", 1000)
	require.NoError(t, err)
	assert.Nil(t, prev)
}
