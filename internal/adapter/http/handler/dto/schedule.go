package dto

import (
	"time"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/pkg/validator"
)

type UpdateStatusReq struct {
	Status types.ScheduleStatus `json:"status"`
}

func (r *UpdateStatusReq) Validate(v *validator.Validator) {
	v.Check(r.Status != "", "status", "must be provided")
	v.Check(r.Status == "" || r.Status.IsValid(), "status", "must be one of scheduled, in_progress, completed, cancelled")
}

type StatusChangeResp struct {
	ScheduleID int64                `json:"schedule_id"`
	From       types.ScheduleStatus `json:"previous_status"`
	Status     types.ScheduleStatus `json:"status"`
	UpdatedBy  int64                `json:"updated_by"`
	Timestamp  time.Time            `json:"timestamp"`
}

func NewStatusChangeResp(ev models.ScheduleStatusEvent) StatusChangeResp {
	return StatusChangeResp{
		ScheduleID: ev.ScheduleID,
		From:       ev.From,
		Status:     ev.To,
		UpdatedBy:  ev.Actor.UserID,
		Timestamp:  ev.Timestamp,
	}
}
