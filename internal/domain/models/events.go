package models

import (
	"time"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
)

// Outbound is the wire envelope of every server to client frame.
type Outbound struct {
	Event types.ServerEvent `json:"event"`
	Data  any               `json:"data"`
}

type RoomPayload struct {
	Room string `json:"room"`
}

type LocationUpdatedPayload struct {
	ScheduleID int64     `json:"schedule_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      *float64  `json:"speed"`
	Heading    *float64  `json:"heading"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DriverName string    `json:"driver_name"`
}

func NewLocationUpdatedPayload(s LocationSample) LocationUpdatedPayload {
	return LocationUpdatedPayload{
		ScheduleID: s.ScheduleID,
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		Speed:      s.Speed,
		Heading:    s.Heading,
		Accuracy:   s.Accuracy,
		Timestamp:  s.Timestamp,
		DriverName: s.DriverName,
	}
}

type ScheduleStatusChangedPayload struct {
	ScheduleID int64                `json:"schedule_id"`
	Status     types.ScheduleStatus `json:"status"`
	UpdatedBy  int64                `json:"updated_by"`
	Timestamp  time.Time            `json:"timestamp"`
}

type ScheduleCompletedPayload struct {
	ScheduleID int64     `json:"schedule_id"`
	Timestamp  time.Time `json:"timestamp"`
}

type NewNotificationPayload struct {
	NotificationID int64                  `json:"notification_id"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Type           types.NotificationType `json:"type"`
	Timestamp      time.Time              `json:"timestamp"`
}

func NewNotificationPayloadFrom(e NotificationEnvelope) NewNotificationPayload {
	return NewNotificationPayload{
		NotificationID: e.ID,
		Title:          e.Title,
		Message:        e.Message,
		Type:           e.Type,
		Timestamp:      e.Timestamp,
	}
}

type UserTypingPayload struct {
	ConversationID int64  `json:"conversation_id"`
	UserID         int64  `json:"user_id"`
	UserName       string `json:"user_name"`
}

type MessagePayload struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
