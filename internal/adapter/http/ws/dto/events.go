package dto

import (
	"encoding/json"
	"strings"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/pkg/validator"
)

// Inbound is the client frame envelope: {"event": "...", "data": {...}}.
type Inbound struct {
	Event types.ClientEvent `json:"event"`
	Data  json.RawMessage   `json:"data"`
}

// Websocket message: join-room / leave-room
type RoomReq struct {
	Room string `json:"room"`
}

func (r *RoomReq) Validate(v *validator.Validator) {
	v.Check(strings.TrimSpace(r.Room) != "", "room", "must be provided")
}

// Websocket message: location-update
type LocationUpdateReq struct {
	ScheduleID *int64   `json:"schedule_id"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Speed      *float64 `json:"speed"`
	Heading    *float64 `json:"heading"`
	Accuracy   *float64 `json:"accuracy"`
}

func (r *LocationUpdateReq) Validate(v *validator.Validator) {
	v.Check(r.ScheduleID != nil, "schedule_id", "must be provided")
	v.Check(r.ScheduleID == nil || *r.ScheduleID > 0, "schedule_id", "must be positive")

	v.Check(r.Latitude != nil, "latitude", "must be provided")
	v.Check(r.Latitude == nil || (*r.Latitude >= -90 && *r.Latitude <= 90), "latitude", "must be between -90 and 90")

	v.Check(r.Longitude != nil, "longitude", "must be provided")
	v.Check(r.Longitude == nil || (*r.Longitude >= -180 && *r.Longitude <= 180), "longitude", "must be between -180 and 180")
}

// Sample converts a validated request.
func (r *LocationUpdateReq) Sample() models.LocationSample {
	return models.LocationSample{
		ScheduleID: *r.ScheduleID,
		Latitude:   *r.Latitude,
		Longitude:  *r.Longitude,
		Speed:      r.Speed,
		Heading:    r.Heading,
		Accuracy:   r.Accuracy,
	}
}

// Websocket message: schedule-status-update
type StatusUpdateReq struct {
	ScheduleID *int64               `json:"schedule_id"`
	Status     types.ScheduleStatus `json:"status"`
}

func (r *StatusUpdateReq) Validate(v *validator.Validator) {
	v.Check(r.ScheduleID != nil, "schedule_id", "must be provided")
	v.Check(r.ScheduleID == nil || *r.ScheduleID > 0, "schedule_id", "must be positive")
	v.Check(validator.PermittedValue(r.Status,
		types.StatusScheduled,
		types.StatusInProgress,
		types.StatusCompleted,
		types.StatusCancelled,
	), "status", "must be one of scheduled, in_progress, completed, cancelled")
}

// Websocket message: typing / stop-typing
type TypingReq struct {
	ConversationID *int64 `json:"conversation_id"`
}

func (r *TypingReq) Validate(v *validator.Validator) {
	v.Check(r.ConversationID != nil, "conversation_id", "must be provided")
	v.Check(r.ConversationID == nil || *r.ConversationID > 0, "conversation_id", "must be positive")
}
