package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
	"github.com/Temutjin2k/schoolbus-hub/pkg/trm"
	"github.com/Temutjin2k/schoolbus-hub/pkg/validator"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Service struct {
	store     NotificationStore
	publisher Publisher
	trm       trm.TxManager

	now func() time.Time
	l   logger.Logger
}

func New(store NotificationStore, publisher Publisher, trm trm.TxManager, l logger.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		trm:       trm,
		now:       time.Now,
		l:         l,
	}
}

// Deliver pushes an already persisted notification to every live session of
// its recipient, or of every user with the target role. Nobody online means
// nobody is notified; the stored record stays available through List.
func (s *Service) Deliver(ctx context.Context, env models.NotificationEnvelope) int {
	ctx = wrap.WithAction(ctx, "deliver_notification")

	var room hub.RoomKey
	switch {
	case env.RecipientID != nil:
		room = hub.UserRoom(*env.RecipientID)
	case env.TargetRole != nil && env.TargetRole.IsValid():
		room = hub.RoleRoom(*env.TargetRole)
	default:
		s.l.Warn(ctx, "notification has no recipient, skipped", "notification_id", env.ID)
		return 0
	}

	if env.Timestamp.IsZero() {
		env.Timestamp = s.now().UTC()
	}

	delivered := s.publisher.Publish(ctx, room, types.EventNewNotification, models.NewNotificationPayloadFrom(env))
	s.l.Debug(ctx, "notification delivered", "notification_id", env.ID, "room", room.String(), "sessions", delivered)

	return delivered
}

// Notify persists a draft and delivers it.
func (s *Service) Notify(ctx context.Context, draft models.NotificationDraft) (models.NotificationEnvelope, error) {
	const op = "NotificationService.Notify"
	ctx = wrap.WithAction(ctx, "create_notification")

	v := validator.New()
	if ValidateDraft(v, draft); !v.Valid() {
		return models.NotificationEnvelope{}, &ValidationError{Errors: v.Errors}
	}

	id, err := s.store.CreateNotification(ctx, draft)
	if err != nil {
		return models.NotificationEnvelope{}, wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrCollaboratorFailure, err))
	}

	env := draft.Envelope(id, s.now().UTC())
	s.Deliver(ctx, env)

	return env, nil
}

// NotifyUsers persists one notification per distinct user in a single
// transaction and delivers them after commit. Returns how many live sessions
// were reached.
func (s *Service) NotifyUsers(ctx context.Context, userIDs []int64, title, message string, typ types.NotificationType) (int, error) {
	const op = "NotificationService.NotifyUsers"
	ctx = wrap.WithAction(ctx, "notify_users")

	recipients := distinct(userIDs)
	if len(recipients) == 0 {
		return 0, nil
	}

	envs := make([]models.NotificationEnvelope, 0, len(recipients))
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		at := s.now().UTC()
		for _, userID := range recipients {
			draft := models.NotificationDraft{
				RecipientID: &userID,
				Title:       title,
				Message:     message,
				Type:        typ,
			}

			id, err := s.store.CreateNotification(ctx, draft)
			if err != nil {
				return fmt.Errorf("user %d: %w", userID, err)
			}
			envs = append(envs, draft.Envelope(id, at))
		}
		return nil
	})
	if err != nil {
		return 0, wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrCollaboratorFailure, err))
	}

	delivered := 0
	for _, env := range envs {
		delivered += s.Deliver(ctx, env)
	}

	s.l.Info(ctx, "notifications sent", "recipients", len(envs), "delivered", delivered)
	return delivered, nil
}

// List returns the caller's recent notifications, personal and role-wide.
func (s *Service) List(ctx context.Context, identity models.Identity, limit int) ([]models.Notification, error) {
	const op = "NotificationService.List"

	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	list, err := s.store.ListForUser(ctx, identity.UserID, identity.Role, limit)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return list, nil
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
