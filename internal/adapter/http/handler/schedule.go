package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/schoolbus-hub/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
	"github.com/Temutjin2k/schoolbus-hub/pkg/validator"
)

type ScheduleService interface {
	UpdateStatus(ctx context.Context, actor models.Identity, scheduleID int64, target types.ScheduleStatus, warn func(error)) (models.ScheduleStatusEvent, error)
	CurrentStatus(ctx context.Context, scheduleID int64) (types.ScheduleStatus, error)
}

type Schedule struct {
	service ScheduleService
	l       logger.Logger
}

func NewSchedule(service ScheduleService, l logger.Logger) *Schedule {
	return &Schedule{
		service: service,
		l:       l,
	}
}

// UpdateStatus godoc
// @Summary      Change schedule status
// @Description  Applies a status transition and broadcasts it to the schedule room. Parents are notified when a trip starts or is cancelled.
// @Tags         Schedules
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        schedule_id  path      int                  true  "Schedule ID"
// @Param        request      body      dto.UpdateStatusReq  true  "Target status"
// @Success      200          {object}  dto.StatusChangeResp
// @Failure      400,401,403,404,409,422  {object}  map[string]any
// @Router       /schedules/{schedule_id}/status [post]
func (h *Schedule) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_schedule_status")

	actor, ok := models.IdentityFromContext(ctx)
	if !ok {
		unauthorizedResponse(w)
		return
	}

	scheduleID, err := readIDParam(r, "schedule_id")
	if err != nil {
		h.l.Warn(ctx, "invalid schedule id")
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithScheduleID(ctx, scheduleID)

	var req dto.UpdateStatusReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	// side effects finish after the response; failures are only logged
	warn := func(err error) {
		h.l.Warn(ctx, "side effect failed", "reason", err.Error())
	}

	event, err := h.service.UpdateStatus(ctx, actor, scheduleID, req.Status, warn)
	if err != nil {
		if GetCode(err) >= http.StatusInternalServerError {
			h.l.Error(wrap.ErrorCtx(ctx, err), "failed to update schedule status", err)
		} else {
			h.l.Warn(ctx, "schedule status update rejected", "reason", err.Error())
		}
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"schedule": dto.NewStatusChangeResp(event)}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}
}

// GetStatus godoc
// @Summary      Get schedule status
// @Tags         Schedules
// @Produce      json
// @Security     BearerAuth
// @Param        schedule_id  path      int  true  "Schedule ID"
// @Success      200          {object}  map[string]any
// @Failure      400,401,404  {object}  map[string]any
// @Router       /schedules/{schedule_id}/status [get]
func (h *Schedule) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_schedule_status")

	scheduleID, err := readIDParam(r, "schedule_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	status, err := h.service.CurrentStatus(ctx, scheduleID)
	if err != nil {
		if GetCode(err) >= http.StatusInternalServerError {
			h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get schedule status", err)
		}
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"schedule_id": scheduleID, "status": status}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
	}
}
