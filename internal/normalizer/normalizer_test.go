package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantrack/fleetsync-go/internal/models"
)

func int64Ptr(v int64) *int64 { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestNormalizeSpeedConversion(t *testing.T) {
	r := Normalize(models.RawRecord{DeviceID: "d1", DeviceTime: 1000, SpeedKnots: 10})
	assert.InDelta(t, 18.52, r.SpeedKmh, 0.001)
}

func TestNormalizeClampsJitterToZero(t *testing.T) {
	// 1 knot = 1.852 km/h, below the 3 km/h movement floor
	r := Normalize(models.RawRecord{DeviceID: "d1", DeviceTime: 1000, SpeedKnots: 1})
	assert.Equal(t, 0.0, r.SpeedKmh)

	r = Normalize(models.RawRecord{DeviceID: "d1", DeviceTime: 1000, SpeedKnots: -5})
	assert.Equal(t, 0.0, r.SpeedKmh)
}

func TestNormalizeRejectsZeroSentinelCoordinates(t *testing.T) {
	r := Normalize(models.RawRecord{DeviceID: "d1", DeviceTime: 1000, Latitude: 0, Longitude: 0})
	assert.Nil(t, r.Latitude)
	assert.Nil(t, r.Longitude)
	assert.False(t, r.HasPosition())
}

func TestNormalizeKeepsValidCoordinates(t *testing.T) {
	r := Normalize(models.RawRecord{DeviceID: "d1", DeviceTime: 1000, Latitude: 52.52, Longitude: 13.405})
	require.True(t, r.HasPosition())
	assert.Equal(t, 52.52, *r.Latitude)
	assert.Equal(t, 13.405, *r.Longitude)
}

func TestNormalizeRejectsOutOfRangeCoordinates(t *testing.T) {
	r := Normalize(models.RawRecord{DeviceID: "d1", DeviceTime: 1000, Latitude: 91.0, Longitude: 10.0})
	assert.False(t, r.HasPosition())
}

func TestIgnitionFromBitField(t *testing.T) {
	r := Normalize(models.RawRecord{DeviceID: "d1", DeviceTime: 1000, StatusBits: int64Ptr(1)})
	require.NotNil(t, r.Ignition)
	assert.True(t, *r.Ignition)
	assert.Equal(t, models.IgnitionMethodBitField, r.IgnitionMethod)
	assert.Equal(t, 0.95, r.IgnitionConfidence)

	r = Normalize(models.RawRecord{DeviceID: "d1", DeviceTime: 1000, StatusBits: int64Ptr(0)})
	require.NotNil(t, r.Ignition)
	assert.False(t, *r.Ignition)
}

func TestIgnitionFromStatusStringOnly(t *testing.T) {
	r := Normalize(models.RawRecord{DeviceID: "d1", DeviceTime: 1000, StatusText: "ACC ON"})
	require.NotNil(t, r.Ignition)
	assert.True(t, *r.Ignition)
	assert.Equal(t, models.IgnitionMethodStringMatch, r.IgnitionMethod)

	bitField := Normalize(models.RawRecord{DeviceID: "d1", DeviceTime: 1000, StatusBits: int64Ptr(1)})
	assert.Less(t, r.IgnitionConfidence, bitField.IgnitionConfidence,
		"string pattern must score below the bit field")
}

func TestIgnitionStatusStringOffVariants(t *testing.T) {
	for _, text := range []string{"ACC OFF", "ignition off", "Key Off", "ACC关"} {
		value, _, method := DetectIgnition(models.RawRecord{StatusText: text}, 0)
		require.NotNil(t, value, "text %q", text)
		assert.False(t, *value, "text %q", text)
		assert.Equal(t, models.IgnitionMethodStringMatch, method)
	}
}

func TestIgnitionSpeedInferred(t *testing.T) {
	r := Normalize(models.RawRecord{DeviceID: "d1", DeviceTime: 1000, SpeedKnots: 20})
	require.NotNil(t, r.Ignition)
	assert.True(t, *r.Ignition)
	assert.Equal(t, models.IgnitionMethodSpeed, r.IgnitionMethod)
	assert.Equal(t, 0.50, r.IgnitionConfidence)
}

func TestIgnitionSpeedInferredOffWithMovingFlag(t *testing.T) {
	value, confidence, method := DetectIgnition(models.RawRecord{Moving: boolPtr(false)}, 0)
	require.NotNil(t, value)
	assert.False(t, *value)
	assert.Equal(t, models.IgnitionMethodSpeed, method)
	assert.Equal(t, 0.40, confidence)
}

func TestIgnitionMultiSignalAgreement(t *testing.T) {
	r := Normalize(models.RawRecord{
		DeviceID:   "d1",
		DeviceTime: 1000,
		StatusBits: int64Ptr(1),
		StatusText: "ACC ON",
	})
	require.NotNil(t, r.Ignition)
	assert.True(t, *r.Ignition)
	assert.Equal(t, models.IgnitionMethodMultiSignal, r.IgnitionMethod)
	assert.InDelta(t, 0.99, r.IgnitionConfidence, 1e-9)
}

func TestIgnitionDisagreementPicksHighestConfidence(t *testing.T) {
	// Bit field says off, speed says on: the bit field wins
	value, confidence, method := DetectIgnition(models.RawRecord{StatusBits: int64Ptr(0)}, 50)
	require.NotNil(t, value)
	assert.False(t, *value)
	assert.Equal(t, models.IgnitionMethodBitField, method)
	assert.Equal(t, 0.95, confidence)
}

func TestIgnitionUnknownWhenNoSignal(t *testing.T) {
	r := Normalize(models.RawRecord{DeviceID: "d1", DeviceTime: 1000})
	assert.Nil(t, r.Ignition)
	assert.Equal(t, 0.0, r.IgnitionConfidence)
	assert.Equal(t, models.IgnitionMethodUnknown, r.IgnitionMethod)
}
