package models

// RawRecord is one position sample exactly as the vendor platform reports it,
// before any unit or signal normalization
type RawRecord struct {
	DeviceID   string  `json:"deviceid"`
	DeviceTime int64   `json:"devicetime"` // Unix timestamp in seconds, vendor clock
	Latitude   float64 `json:"callat"`     // 0/0 is the vendor's no-fix sentinel
	Longitude  float64 `json:"callon"`
	SpeedKnots float64 `json:"speed"` // vendor reports speed in knots

	// Ignition signals, any subset may be present
	StatusBits *int64 `json:"status,omitempty"`    // protocol status bit field
	StatusText string `json:"strstatus,omitempty"` // free-text status string
	Moving     *bool  `json:"moving,omitempty"`    // vendor movement flag

	BatteryPct *int `json:"battery,omitempty"`
	Online     bool `json:"online"`
}

// RawTrip is one vendor-computed trip summary
type RawTrip struct {
	DeviceID  string  `json:"deviceid"`
	StartTime int64   `json:"begintime"` // Unix timestamp in seconds
	EndTime   int64   `json:"endtime"`
	Distance  float64 `json:"distance"` // accumulated path length in meters; 0 = not supplied

	// Endpoints; the vendor omits them for trips assembled from sparse uploads
	StartLat *float64 `json:"startlat,omitempty"`
	StartLon *float64 `json:"startlon,omitempty"`
	EndLat   *float64 `json:"endlat,omitempty"`
	EndLon   *float64 `json:"endlon,omitempty"`

	MaxSpeedKnots float64 `json:"maxspeed,omitempty"`
	AvgSpeedKnots float64 `json:"avgspeed,omitempty"`
}
