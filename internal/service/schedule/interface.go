package schedule

import (
	"context"
	"time"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
	"github.com/Temutjin2k/schoolbus-hub/pkg/async"
)

/*=====================Schedule Repository========================*/

type ScheduleStore interface {
	GetStatus(ctx context.Context, scheduleID int64) (types.ScheduleStatus, error)
	// CompareAndSetStatus writes next only if the stored status is still from.
	CompareAndSetStatus(ctx context.Context, scheduleID int64, from, next types.ScheduleStatus) (bool, error)
	RecordTimestamp(ctx context.Context, scheduleID int64, field types.ScheduleTimestamp, at time.Time) error
	ParentIDs(ctx context.Context, scheduleID int64) ([]int64, error)
	IsDriverAssigned(ctx context.Context, scheduleID, driverID int64) (bool, error)
}

/*========================Notifier================================*/

type Notifier interface {
	NotifyUsers(ctx context.Context, userIDs []int64, title, message string, typ types.NotificationType) (int, error)
}

/*========================Publisher===============================*/

type Publisher interface {
	Publish(ctx context.Context, key hub.RoomKey, event types.ServerEvent, data any) int
}

type TaskRunner interface {
	Submit(ctx context.Context, name string, fn async.Task) bool
}
