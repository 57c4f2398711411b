package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Temutjin2k/schoolbus-hub/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/service/notification"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
	"github.com/Temutjin2k/schoolbus-hub/pkg/validator"
)

type NotificationService interface {
	Notify(ctx context.Context, draft models.NotificationDraft) (models.NotificationEnvelope, error)
	List(ctx context.Context, identity models.Identity, limit int) ([]models.Notification, error)
}

type Notification struct {
	service NotificationService
	l       logger.Logger
}

func NewNotification(service NotificationService, l logger.Logger) *Notification {
	return &Notification{
		service: service,
		l:       l,
	}
}

// Create godoc
// @Summary      Send a notification
// @Description  Persists a notification for one user or for every user with a role and pushes it to their live sessions.
// @Tags         Notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.CreateNotificationReq  true  "Notification"
// @Success      201      {object}  models.NotificationEnvelope
// @Failure      400,401,403,422,503  {object}  map[string]any
// @Router       /notifications [post]
func (h *Notification) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_notification")

	var req dto.CreateNotificationReq
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

	env, err := h.service.Notify(ctx, req.ToModel())
	if err != nil {
		var verr *notification.ValidationError
		if errors.As(err, &verr) {
			failedValidationResponse(w, verr.Errors)
			return
		}
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create notification", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"notification": env}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "notification created", "notification_id", env.ID)
}

// List godoc
// @Summary      List my notifications
// @Description  Returns the caller's recent personal and role-wide notifications, newest first. Clients use it to catch up on pushes missed while offline.
// @Tags         Notifications
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Max items (default 50, max 200)"
// @Success      200    {object}  map[string]any
// @Failure      400,401  {object}  map[string]any
// @Router       /notifications [get]
func (h *Notification) List(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_notifications")

	identity, ok := models.IdentityFromContext(ctx)
	if !ok {
		unauthorizedResponse(w)
		return
	}

	limit, err := readLimit(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	list, err := h.service.List(ctx, identity, limit)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list notifications", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"notifications": list, "count": len(list)}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
	}
}
