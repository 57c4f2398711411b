package schedule

import (
	"fmt"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
)

// Effects lists what applying a transition requires, in the order the side
// effects are attempted: timestamp, then parent notifications.
type Effects struct {
	Event            types.ServerEvent
	Timestamp        types.ScheduleTimestamp // empty when none is recorded
	NotifyParents    bool
	NotificationType types.NotificationType
}

var transitions = map[types.ScheduleStatus]map[types.ScheduleStatus]Effects{
	types.StatusScheduled: {
		types.StatusInProgress: {
			Event:            types.EventScheduleStatusChanged,
			Timestamp:        types.TimestampActualStart,
			NotifyParents:    true,
			NotificationType: types.NotificationInfo,
		},
		types.StatusCancelled: {
			Event:            types.EventScheduleStatusChanged,
			NotifyParents:    true,
			NotificationType: types.NotificationAlert,
		},
	},
	types.StatusInProgress: {
		types.StatusCompleted: {
			Event:     types.EventScheduleCompleted,
			Timestamp: types.TimestampActualEnd,
		},
		types.StatusCancelled: {
			Event:            types.EventScheduleStatusChanged,
			NotifyParents:    true,
			NotificationType: types.NotificationAlert,
		},
	},
}

// Plan validates from -> to and returns the side effects it requires.
// Nothing leaves a terminal state.
func Plan(from, to types.ScheduleStatus) (Effects, error) {
	if !to.IsValid() {
		return Effects{}, fmt.Errorf("%w: unknown status %q", types.ErrMalformedEvent, to)
	}
	if from.IsTerminal() {
		return Effects{}, fmt.Errorf("%w: status is %s", types.ErrTerminalState, from)
	}

	effects, ok := transitions[from][to]
	if !ok {
		return Effects{}, fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, from, to)
	}
	return effects, nil
}

// notificationText returns the parent-facing title and message for entering status.
func notificationText(scheduleID int64, status types.ScheduleStatus) (string, string) {
	switch status {
	case types.StatusInProgress:
		return "Bus is on the way", fmt.Sprintf("Trip #%d has started.", scheduleID)
	case types.StatusCancelled:
		return "Trip cancelled", fmt.Sprintf("Trip #%d has been cancelled. Please make other arrangements.", scheduleID)
	default:
		return "Trip update", fmt.Sprintf("Trip #%d is now %s.", scheduleID, status)
	}
}
