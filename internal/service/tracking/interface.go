package tracking

import (
	"context"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
	"github.com/Temutjin2k/schoolbus-hub/pkg/async"
)

/*========================Publisher===============================*/

type Publisher interface {
	Publish(ctx context.Context, key hub.RoomKey, event types.ServerEvent, data any) int
}

/*========================Task Runner=============================*/

type TaskRunner interface {
	Submit(ctx context.Context, name string, fn async.Task) bool
}

/*====================Location Collaborators======================*/

type LocationStore interface {
	SaveLocation(ctx context.Context, sample models.LocationSample) error
}

// LocationFeed forwards accepted samples to downstream consumers.
type LocationFeed interface {
	PublishLocation(ctx context.Context, sample models.LocationSample) error
}

type AssignmentChecker interface {
	IsDriverAssigned(ctx context.Context, scheduleID, driverID int64) (bool, error)
}
