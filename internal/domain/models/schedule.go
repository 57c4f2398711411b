package models

import (
	"time"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
)

// ScheduleStatusEvent is an applied status transition.
type ScheduleStatusEvent struct {
	ScheduleID int64                `json:"schedule_id"`
	From       types.ScheduleStatus `json:"from"`
	To         types.ScheduleStatus `json:"to"`
	Actor      Identity             `json:"actor"`
	Timestamp  time.Time            `json:"timestamp"`
}
