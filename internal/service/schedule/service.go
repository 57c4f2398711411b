package schedule

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
	"github.com/Temutjin2k/schoolbus-hub/pkg/metrics"
)

type Options struct {
	// EnforceDriverAssignment restricts drivers to schedules assigned to them.
	EnforceDriverAssignment bool
}

type Service struct {
	store     ScheduleStore
	notifier  Notifier
	publisher Publisher
	tasks     TaskRunner
	opts      Options

	now func() time.Time
	l   logger.Logger
}

func New(store ScheduleStore, notifier Notifier, publisher Publisher, tasks TaskRunner, opts Options, l logger.Logger) *Service {
	return &Service{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		tasks:     tasks,
		opts:      opts,
		now:       time.Now,
		l:         l,
	}
}

// UpdateStatus applies a status transition requested by actor. The status
// write is a compare-and-set, so two racing requests cannot both succeed.
// Once written, the change is broadcast to the schedule room; timestamps and
// parent notifications follow in the background and their failures are
// reported through warn without undoing the change.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Identity, scheduleID int64, target types.ScheduleStatus, warn func(error)) (models.ScheduleStatusEvent, error) {
	const op = "ScheduleService.UpdateStatus"

	ctx = wrap.WithScheduleID(wrap.WithAction(ctx, "update_schedule_status"), scheduleID)

	if !actor.Is(types.RoleAdmin, types.RoleDriver) {
		return models.ScheduleStatusEvent{}, fmt.Errorf("%s: role %q cannot change schedule status: %w", op, actor.Role, types.ErrPolicyViolation)
	}
	if scheduleID <= 0 {
		return models.ScheduleStatusEvent{}, fmt.Errorf("%s: schedule_id must be positive: %w", op, types.ErrMalformedEvent)
	}
	if !target.IsValid() {
		return models.ScheduleStatusEvent{}, fmt.Errorf("%s: unknown status %q: %w", op, target, types.ErrMalformedEvent)
	}

	if s.opts.EnforceDriverAssignment && actor.Is(types.RoleDriver) {
		assigned, err := s.store.IsDriverAssigned(ctx, scheduleID, actor.UserID)
		if err != nil {
			return models.ScheduleStatusEvent{}, wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrCollaboratorFailure, err))
		}
		if !assigned {
			return models.ScheduleStatusEvent{}, fmt.Errorf("%s: driver is not assigned to schedule %d: %w", op, scheduleID, types.ErrPolicyViolation)
		}
	}

	current, err := s.store.GetStatus(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, types.ErrScheduleNotFound) {
			return models.ScheduleStatusEvent{}, fmt.Errorf("%s: %w", op, err)
		}
		return models.ScheduleStatusEvent{}, wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrCollaboratorFailure, err))
	}

	effects, err := Plan(current, target)
	if err != nil {
		return models.ScheduleStatusEvent{}, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := s.store.CompareAndSetStatus(ctx, scheduleID, current, target)
	if err != nil {
		return models.ScheduleStatusEvent{}, wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrCollaboratorFailure, err))
	}
	if !ok {
		return models.ScheduleStatusEvent{}, fmt.Errorf("%s: %w", op, types.ErrStatusConflict)
	}

	event := models.ScheduleStatusEvent{
		ScheduleID: scheduleID,
		From:       current,
		To:         target,
		Actor:      actor,
		Timestamp:  s.now().UTC(),
	}
	metrics.RecordTransition(target.String())

	s.broadcast(ctx, event, effects)
	s.applyEffects(ctx, event, effects, warn)

	s.l.Info(ctx, "schedule status changed", "from", current, "to", target, "actor_id", actor.UserID)

	return event, nil
}

// CurrentStatus is a read and is allowed in any state.
func (s *Service) CurrentStatus(ctx context.Context, scheduleID int64) (types.ScheduleStatus, error) {
	const op = "ScheduleService.CurrentStatus"

	status, err := s.store.GetStatus(ctx, scheduleID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return status, nil
}

func (s *Service) broadcast(ctx context.Context, event models.ScheduleStatusEvent, effects Effects) {
	room := hub.ScheduleRoom(event.ScheduleID)

	var data any
	switch effects.Event {
	case types.EventScheduleCompleted:
		data = models.ScheduleCompletedPayload{
			ScheduleID: event.ScheduleID,
			Timestamp:  event.Timestamp,
		}
	default:
		data = models.ScheduleStatusChangedPayload{
			ScheduleID: event.ScheduleID,
			Status:     event.To,
			UpdatedBy:  event.Actor.UserID,
			Timestamp:  event.Timestamp,
		}
	}

	s.publisher.Publish(ctx, room, effects.Event, data)
}

func (s *Service) applyEffects(ctx context.Context, event models.ScheduleStatusEvent, effects Effects, warn func(error)) {
	if effects.Timestamp == "" && !effects.NotifyParents {
		return
	}

	report := func(err error) {
		if warn != nil {
			warn(err)
		}
	}

	ok := s.tasks.Submit(ctx, "schedule_side_effects", func(ctx context.Context) error {
		var errs []error

		if effects.Timestamp != "" {
			if err := s.store.RecordTimestamp(ctx, event.ScheduleID, effects.Timestamp, event.Timestamp); err != nil {
				report(fmt.Errorf("%w: %s was not recorded", types.ErrCollaboratorFailure, effects.Timestamp))
				errs = append(errs, fmt.Errorf("record %s: %w", effects.Timestamp, err))
			}
		}

		if effects.NotifyParents {
			if err := s.notifyParents(ctx, event, effects.NotificationType); err != nil {
				report(fmt.Errorf("%w: parents were not notified", types.ErrCollaboratorFailure))
				errs = append(errs, err)
			}
		}

		return errors.Join(errs...)
	})
	if !ok {
		report(fmt.Errorf("%w: side effects were not scheduled", types.ErrCollaboratorFailure))
	}
}

func (s *Service) notifyParents(ctx context.Context, event models.ScheduleStatusEvent, typ types.NotificationType) error {
	parents, err := s.store.ParentIDs(ctx, event.ScheduleID)
	if err != nil {
		return fmt.Errorf("load parents: %w", err)
	}
	if len(parents) == 0 {
		return nil
	}

	title, message := notificationText(event.ScheduleID, event.To)
	if _, err := s.notifier.NotifyUsers(ctx, parents, title, message, typ); err != nil {
		return fmt.Errorf("notify parents: %w", err)
	}
	return nil
}
