package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/pkg/metrics"
	"github.com/Temutjin2k/schoolbus-hub/pkg/trm"
)

type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// TxorDB returns the transaction bound to ctx, or the pool when there is none.
func TxorDB(ctx context.Context, db *pgxpool.Pool) Querier {
	tx, ok := ctx.Value(trm.TxKey).(pgx.Tx)
	if !ok {
		return db
	}
	return tx
}

// observe records query metrics for op; call it deferred with a pointer to the returned error.
// A missing schedule is a valid answer, not a failed query.
func observe(op string, start time.Time, err *error) {
	queryErr := *err
	if errors.Is(queryErr, types.ErrScheduleNotFound) {
		queryErr = nil
	}
	metrics.RecordDatabaseQuery(op, queryErr, time.Since(start))
}
