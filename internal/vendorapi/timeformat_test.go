package vendorapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVendorTimeAppliesOffset(t *testing.T) {
	// 2023-11-14 22:13:20 UTC is 2023-11-15 06:13:20 at UTC+8
	utc := time.Unix(1700000000, 0).UTC()
	assert.Equal(t, "2023-11-15 06:13:20", FormatVendorTime(utc, 8))
	assert.Equal(t, "2023-11-14 22:13:20", FormatVendorTime(utc, 0))
	assert.Equal(t, "2023-11-14 17:13:20", FormatVendorTime(utc, -5))
}

func TestParseVendorTimeRoundTrip(t *testing.T) {
	utc := time.Unix(1700000000, 0).UTC()
	parsed, err := ParseVendorTime(FormatVendorTime(utc, 8), 8)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(utc))
}
