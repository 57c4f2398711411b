package wshandler

import (
	"context"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
)

type SessionHub interface {
	Join(ctx context.Context, s *hub.Session, key hub.RoomKey) error
	Leave(ctx context.Context, s *hub.Session, key hub.RoomKey) error
	Send(ctx context.Context, s *hub.Session, event types.ServerEvent, data any) bool
	PublishExcept(ctx context.Context, key hub.RoomKey, except *hub.Session, event types.ServerEvent, data any) int
}

type LocationService interface {
	Handle(ctx context.Context, actor models.Identity, sample models.LocationSample, warn func(error)) (models.LocationSample, error)
}

type ScheduleService interface {
	UpdateStatus(ctx context.Context, actor models.Identity, scheduleID int64, target types.ScheduleStatus, warn func(error)) (models.ScheduleStatusEvent, error)
}
