package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
)

type LocationRepo struct {
	db *pgxpool.Pool
}

func NewLocationRepo(db *pgxpool.Pool) *LocationRepo {
	return &LocationRepo{db: db}
}

// SaveLocation appends one GPS sample to the schedule's track.
func (r *LocationRepo) SaveLocation(ctx context.Context, sample models.LocationSample) (err error) {
	const op = "LocationRepo.SaveLocation"
	defer observe(op, time.Now(), &err)

	query := `
		INSERT INTO bus_locations(schedule_id, driver_id, latitude, longitude, speed, heading, accuracy, recorded_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err = TxorDB(ctx, r.db).Exec(ctx, query,
		sample.ScheduleID,
		sample.DriverID,
		sample.Latitude,
		sample.Longitude,
		sample.Speed,
		sample.Heading,
		sample.Accuracy,
		sample.Timestamp,
	)
	if err != nil {
		ctx = wrap.WithAction(wrap.WithScheduleID(ctx, sample.ScheduleID), types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}
