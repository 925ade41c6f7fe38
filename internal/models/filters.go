package models

// TripFilter represents filter parameters for querying trips
type TripFilter struct {
	DeviceID    string  `form:"deviceId"`
	StartTime   int64   `form:"startTime"` // Unix timestamp
	EndTime     int64   `form:"endTime"`   // Unix timestamp
	MinDistance float64 `form:"minDistance"`
	Source      string  `form:"source"`
	Page        int     `form:"page"`
	PageSize    int     `form:"pageSize"`
}

// ReadingFilter represents filter parameters for querying readings
type ReadingFilter struct {
	StartTime int64   `form:"startTime"` // Unix timestamp
	EndTime   int64   `form:"endTime"`   // Unix timestamp
	MinSpeed  float64 `form:"minSpeed"`
	MaxSpeed  float64 `form:"maxSpeed"`
	Page      int     `form:"page"`
	PageSize  int     `form:"pageSize"`
}

// EventFilter represents filter parameters for querying events
type EventFilter struct {
	Type      string `form:"type"`
	StartTime int64  `form:"startTime"` // Unix timestamp
	EndTime   int64  `form:"endTime"`   // Unix timestamp
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}
