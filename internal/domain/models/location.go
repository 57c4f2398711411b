package models

import "time"

// LocationSample is a single GPS fix reported by a driver for a schedule.
// It is broadcast and handed to persistence, never kept by the hub.
type LocationSample struct {
	ScheduleID int64     `json:"schedule_id"`
	DriverID   int64     `json:"driver_id"`
	DriverName string    `json:"driver_name"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      *float64  `json:"speed"`
	Heading    *float64  `json:"heading"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
