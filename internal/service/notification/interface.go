package notification

import (
	"context"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
)

type Publisher interface {
	Publish(ctx context.Context, key hub.RoomKey, event types.ServerEvent, data any) int
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, draft models.NotificationDraft) (int64, error)
	ListForUser(ctx context.Context, userID int64, role types.UserRole, limit int) ([]models.Notification, error)
}
