package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
)

var ErrUnknownTimestamp = errors.New("unknown schedule timestamp column")

type ScheduleRepo struct {
	db *pgxpool.Pool
}

func NewScheduleRepo(db *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) GetStatus(ctx context.Context, scheduleID int64) (status types.ScheduleStatus, err error) {
	const op = "ScheduleRepo.GetStatus"
	defer observe(op, time.Now(), &err)

	query := `SELECT status FROM schedules WHERE id = $1;`

	if err = TxorDB(ctx, r.db).QueryRow(ctx, query, scheduleID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", types.ErrScheduleNotFound
		}
		ctx = wrap.WithAction(wrap.WithScheduleID(ctx, scheduleID), types.ActionDatabaseTransactionFailed)
		return "", wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return status, nil
}

// CompareAndSetStatus writes next only while the row still holds from.
// Returns false when another writer got there first.
func (r *ScheduleRepo) CompareAndSetStatus(ctx context.Context, scheduleID int64, from, next types.ScheduleStatus) (ok bool, err error) {
	const op = "ScheduleRepo.CompareAndSetStatus"
	defer observe(op, time.Now(), &err)

	query := `
		UPDATE schedules
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2;`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, scheduleID, from, next)
	if err != nil {
		ctx = wrap.WithAction(wrap.WithScheduleID(ctx, scheduleID), types.ActionDatabaseTransactionFailed)
		return false, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return tag.RowsAffected() == 1, nil
}

// RecordTimestamp sets one of the actual start/end columns.
func (r *ScheduleRepo) RecordTimestamp(ctx context.Context, scheduleID int64, field types.ScheduleTimestamp, at time.Time) (err error) {
	const op = "ScheduleRepo.RecordTimestamp"
	defer observe(op, time.Now(), &err)

	// column names cannot be bound, so only known ones reach the query
	switch field {
	case types.TimestampActualStart, types.TimestampActualEnd:
	default:
		return fmt.Errorf("%s: %w: %q", op, ErrUnknownTimestamp, field)
	}

	query := fmt.Sprintf(`UPDATE schedules SET %s = $2, updated_at = now() WHERE id = $1;`, field)

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, scheduleID, at)
	if err != nil {
		ctx = wrap.WithAction(wrap.WithScheduleID(ctx, scheduleID), types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if tag.RowsAffected() == 0 {
		return types.ErrScheduleNotFound
	}
	return nil
}

// ParentIDs returns the distinct parents of the students riding the schedule.
func (r *ScheduleRepo) ParentIDs(ctx context.Context, scheduleID int64) (ids []int64, err error) {
	const op = "ScheduleRepo.ParentIDs"
	defer observe(op, time.Now(), &err)

	query := `
		SELECT DISTINCT st.parent_id
		FROM schedule_students ss
		JOIN students st ON st.id = ss.student_id
		WHERE ss.schedule_id = $1 AND st.parent_id IS NOT NULL
		ORDER BY st.parent_id;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, scheduleID)
	if err != nil {
		ctx = wrap.WithAction(wrap.WithScheduleID(ctx, scheduleID), types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	ids, err = pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: scan: %w", op, err))
	}
	return ids, nil
}

func (r *ScheduleRepo) IsDriverAssigned(ctx context.Context, scheduleID, driverID int64) (assigned bool, err error) {
	const op = "ScheduleRepo.IsDriverAssigned"
	defer observe(op, time.Now(), &err)

	query := `SELECT EXISTS(SELECT 1 FROM schedules WHERE id = $1 AND driver_id = $2);`

	if err = TxorDB(ctx, r.db).QueryRow(ctx, query, scheduleID, driverID).Scan(&assigned); err != nil {
		ctx = wrap.WithAction(wrap.WithScheduleID(ctx, scheduleID), types.ActionDatabaseTransactionFailed)
		return false, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return assigned, nil
}
