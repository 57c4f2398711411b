package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
)

type Options struct {
	// EnforceAssignment restricts drivers to schedules assigned to them.
	EnforceAssignment bool
}

type Service struct {
	publisher   Publisher
	tasks       TaskRunner
	store       LocationStore
	feed        LocationFeed // optional
	assignments AssignmentChecker
	opts        Options

	now func() time.Time
	l   logger.Logger
}

func New(publisher Publisher, tasks TaskRunner, store LocationStore, feed LocationFeed, assignments AssignmentChecker, opts Options, l logger.Logger) *Service {
	return &Service{
		publisher:   publisher,
		tasks:       tasks,
		store:       store,
		feed:        feed,
		assignments: assignments,
		opts:        opts,
		now:         time.Now,
		l:           l,
	}
}

// Handle validates a driver's GPS sample, stamps the receipt time and publishes
// it to the schedule room. Persistence runs in the background; its failure is
// reported through warn and never affects the broadcast.
func (s *Service) Handle(ctx context.Context, actor models.Identity, sample models.LocationSample, warn func(error)) (models.LocationSample, error) {
	const op = "tracking.Handle"

	ctx = wrap.WithScheduleID(wrap.WithAction(ctx, "location_update"), sample.ScheduleID)

	if !actor.Is(types.RoleDriver) {
		return models.LocationSample{}, fmt.Errorf("%s: role %q cannot publish locations: %w", op, actor.Role, types.ErrPolicyViolation)
	}

	if err := validateSample(sample); err != nil {
		return models.LocationSample{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.opts.EnforceAssignment && s.assignments != nil {
		assigned, err := s.assignments.IsDriverAssigned(ctx, sample.ScheduleID, actor.UserID)
		if err != nil {
			return models.LocationSample{}, wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrCollaboratorFailure, err))
		}
		if !assigned {
			return models.LocationSample{}, fmt.Errorf("%s: driver is not assigned to schedule %d: %w", op, sample.ScheduleID, types.ErrPolicyViolation)
		}
	}

	sample.DriverID = actor.UserID
	sample.DriverName = actor.Name
	sample.Timestamp = s.now().UTC()

	delivered := s.publisher.Publish(ctx, hub.ScheduleRoom(sample.ScheduleID), types.EventLocationUpdated, models.NewLocationUpdatedPayload(sample))
	s.l.Debug(ctx, "location broadcast", "delivered", delivered)

	s.persist(ctx, sample, warn)

	return sample, nil
}

func (s *Service) persist(ctx context.Context, sample models.LocationSample, warn func(error)) {
	report := func(err error) {
		if warn != nil {
			warn(err)
		}
	}

	if s.store != nil {
		ok := s.tasks.Submit(ctx, "save_location", func(ctx context.Context) error {
			if err := s.store.SaveLocation(ctx, sample); err != nil {
				report(fmt.Errorf("%w: location sample was not saved", types.ErrCollaboratorFailure))
				return err
			}
			return nil
		})
		if !ok {
			report(fmt.Errorf("%w: location sample was not saved", types.ErrCollaboratorFailure))
		}
	}

	if s.feed != nil {
		// downstream feed is best-effort and not the acting driver's concern
		s.tasks.Submit(ctx, "publish_location", func(ctx context.Context) error {
			return s.feed.PublishLocation(ctx, sample)
		})
	}
}

func validateSample(sample models.LocationSample) error {
	var errs []error

	if sample.ScheduleID <= 0 {
		errs = append(errs, errors.New("schedule_id must be positive"))
	}
	if sample.Latitude < -90 || sample.Latitude > 90 {
		errs = append(errs, errors.New("latitude must be between -90 and 90"))
	}
	if sample.Longitude < -180 || sample.Longitude > 180 {
		errs = append(errs, errors.New("longitude must be between -180 and 180"))
	}
	if sample.Heading != nil && (*sample.Heading < 0 || *sample.Heading >= 360) {
		errs = append(errs, errors.New("heading must be in [0, 360)"))
	}
	if sample.Speed != nil && *sample.Speed < 0 {
		errs = append(errs, errors.New("speed must not be negative"))
	}
	if sample.Accuracy != nil && *sample.Accuracy < 0 {
		errs = append(errs, errors.New("accuracy must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", types.ErrMalformedEvent, errors.Join(errs...))
	}
	return nil
}
