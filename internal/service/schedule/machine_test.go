package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
)

func TestPlan_Allowed(t *testing.T) {
	tests := []struct {
		from, to types.ScheduleStatus
		event    types.ServerEvent
		stamp    types.ScheduleTimestamp
		notify   bool
		category types.NotificationType
	}{
		{types.StatusScheduled, types.StatusInProgress, types.EventScheduleStatusChanged, types.TimestampActualStart, true, types.NotificationInfo},
		{types.StatusScheduled, types.StatusCancelled, types.EventScheduleStatusChanged, "", true, types.NotificationAlert},
		{types.StatusInProgress, types.StatusCompleted, types.EventScheduleCompleted, types.TimestampActualEnd, false, ""},
		{types.StatusInProgress, types.StatusCancelled, types.EventScheduleStatusChanged, "", true, types.NotificationAlert},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			got, err := Plan(tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.event, got.Event)
			assert.Equal(t, tt.stamp, got.Timestamp)
			assert.Equal(t, tt.notify, got.NotifyParents)
			assert.Equal(t, tt.category, got.NotificationType)
		})
	}
}

func TestPlan_TerminalStatesRejectEverything(t *testing.T) {
	all := []types.ScheduleStatus{types.StatusScheduled, types.StatusInProgress, types.StatusCompleted, types.StatusCancelled}

	for _, from := range []types.ScheduleStatus{types.StatusCompleted, types.StatusCancelled} {
		for _, to := range all {
			_, err := Plan(from, to)
			assert.ErrorIs(t, err, types.ErrTerminalState, "%s -> %s", from, to)
		}
	}
}

func TestPlan_InvalidTransitions(t *testing.T) {
	for _, tt := range []struct{ from, to types.ScheduleStatus }{
		{types.StatusScheduled, types.StatusScheduled},
		{types.StatusScheduled, types.StatusCompleted},
		{types.StatusInProgress, types.StatusInProgress},
		{types.StatusInProgress, types.StatusScheduled},
	} {
		_, err := Plan(tt.from, tt.to)
		assert.ErrorIs(t, err, types.ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
	}
}

func TestPlan_UnknownTarget(t *testing.T) {
	_, err := Plan(types.StatusScheduled, "paused")
	assert.ErrorIs(t, err, types.ErrMalformedEvent)
}
