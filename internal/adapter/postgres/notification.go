package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
)

type NotificationRepo struct {
	db *pgxpool.Pool
}

func NewNotificationRepo(db *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// CreateNotification stores a personal or role-wide notification and returns its id.
func (r *NotificationRepo) CreateNotification(ctx context.Context, draft models.NotificationDraft) (id int64, err error) {
	const op = "NotificationRepo.CreateNotification"
	defer observe(op, time.Now(), &err)

	query := `
		INSERT INTO notifications(recipient_id, target_role, title, message, type)
		VALUES($1, $2, $3, $4, $5)
		RETURNING id;`

	if err = TxorDB(ctx, r.db).QueryRow(ctx, query,
		draft.RecipientID,
		draft.TargetRole,
		draft.Title,
		draft.Message,
		draft.Type,
	).Scan(&id); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return 0, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return id, nil
}

// ListForUser returns the newest notifications addressed to the user or to their role.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID int64, role types.UserRole, limit int) (list []models.Notification, err error) {
	const op = "NotificationRepo.ListForUser"
	defer observe(op, time.Now(), &err)

	query := `
		SELECT id, title, message, type, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1 OR target_role = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, userID, role, limit)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	list, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Notification, error) {
		var n models.Notification
		err := row.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt)
		return n, err
	})
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: scan: %w", op, err))
	}

	return list, nil
}
