package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
	"github.com/Temutjin2k/schoolbus-hub/internal/service/notification"
	"github.com/Temutjin2k/schoolbus-hub/pkg/async"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
)

var changedAt = time.Date(2025, 9, 1, 7, 0, 0, 0, time.UTC)

type syncRunner struct{}

func (syncRunner) Submit(ctx context.Context, name string, fn async.Task) bool {
	_ = fn(ctx)
	return true
}

type fakeSchedules struct {
	mu         sync.Mutex
	status     map[int64]types.ScheduleStatus
	parents    map[int64][]int64
	drivers    map[int64]int64
	timestamps map[int64]map[types.ScheduleTimestamp]time.Time
	stampErr   error
}

func newFakeSchedules() *fakeSchedules {
	return &fakeSchedules{
		status:     map[int64]types.ScheduleStatus{},
		parents:    map[int64][]int64{},
		drivers:    map[int64]int64{},
		timestamps: map[int64]map[types.ScheduleTimestamp]time.Time{},
	}
}

func (f *fakeSchedules) GetStatus(ctx context.Context, id int64) (types.ScheduleStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.status[id]
	if !ok {
		return "", types.ErrScheduleNotFound
	}
	return st, nil
}

func (f *fakeSchedules) CompareAndSetStatus(ctx context.Context, id int64, from, next types.ScheduleStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status[id] != from {
		return false, nil
	}
	f.status[id] = next
	return true, nil
}

func (f *fakeSchedules) RecordTimestamp(ctx context.Context, id int64, field types.ScheduleTimestamp, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stampErr != nil {
		return f.stampErr
	}
	if f.timestamps[id] == nil {
		f.timestamps[id] = map[types.ScheduleTimestamp]time.Time{}
	}
	f.timestamps[id][field] = at
	return nil
}

func (f *fakeSchedules) ParentIDs(ctx context.Context, id int64) ([]int64, error) {
	return f.parents[id], nil
}

func (f *fakeSchedules) IsDriverAssigned(ctx context.Context, scheduleID, driverID int64) (bool, error) {
	return f.drivers[scheduleID] == driverID, nil
}

type fakeNotificationStore struct {
	mu    sync.Mutex
	count int64
}

func (f *fakeNotificationStore) CreateNotification(ctx context.Context, d models.NotificationDraft) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return f.count, nil
}

func (f *fakeNotificationStore) ListForUser(ctx context.Context, userID int64, role types.UserRole, limit int) ([]models.Notification, error) {
	return nil, nil
}

type passTx struct{}

func (passTx) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type fixture struct {
	hub       *hub.Hub
	schedules *fakeSchedules
	notes     *fakeNotificationStore
	service   *Service
}

func newFixture(opts Options) *fixture {
	return newLoggedFixture(opts, io.Discard, logger.LevelError)
}

func newLoggedFixture(opts Options, w io.Writer, level string) *fixture {
	log := logger.New(w, "test", level)
	h := hub.New(hub.Options{SendQueueSize: 32}, log)
	schedules := newFakeSchedules()
	notes := &fakeNotificationStore{}

	svc := New(schedules, notification.New(notes, h, passTx{}, log), h, syncRunner{}, opts, log)
	svc.now = func() time.Time { return changedAt }

	return &fixture{hub: h, schedules: schedules, notes: notes, service: svc}
}

func (f *fixture) session(t *testing.T, id models.Identity, rooms ...hub.RoomKey) *hub.Session {
	t.Helper()
	s, err := f.hub.Register(context.Background(), id)
	require.NoError(t, err)
	for _, r := range rooms {
		require.NoError(t, f.hub.Join(context.Background(), s, r))
	}
	return s
}

type frame struct {
	Event types.ServerEvent `json:"event"`
	Data  json.RawMessage   `json:"data"`
}

func drain(t *testing.T, s *hub.Session) []frame {
	t.Helper()
	var out []frame
	for {
		select {
		case raw := <-s.Messages():
			var fr frame
			require.NoError(t, json.Unmarshal(raw, &fr))
			out = append(out, fr)
		default:
			return out
		}
	}
}

func count(frames []frame, event types.ServerEvent) int {
	n := 0
	for _, f := range frames {
		if f.Event == event {
			n++
		}
	}
	return n
}

var (
	admin   = models.Identity{UserID: 100, Role: types.RoleAdmin, Name: "Ada"}
	driver  = models.Identity{UserID: 200, Role: types.RoleDriver, Name: "Dan"}
	parentA = models.Identity{UserID: 1, Role: types.RoleParent}
	parentB = models.Identity{UserID: 2, Role: types.RoleParent}
)

func TestUpdateStatus_StartNotifiesEveryParentOnce(t *testing.T) {
	f := newFixture(Options{})
	f.schedules.status[7] = types.StatusScheduled
	// parent 1 has two children on the bus
	f.schedules.parents[7] = []int64{1, 2, 1}

	room := hub.ScheduleRoom(7)
	a := f.session(t, parentA, room)
	b := f.session(t, parentB)
	watcher := f.session(t, models.Identity{UserID: 3, Role: types.RoleParent}, room)

	ev, err := f.service.UpdateStatus(context.Background(), admin, 7, types.StatusInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, types.StatusScheduled, ev.From)
	assert.Equal(t, types.StatusInProgress, ev.To)

	framesA := drain(t, a)
	assert.Equal(t, 1, count(framesA, types.EventNewNotification))
	assert.Equal(t, 1, count(framesA, types.EventScheduleStatusChanged))

	framesB := drain(t, b)
	assert.Equal(t, 1, count(framesB, types.EventNewNotification))
	assert.Equal(t, 0, count(framesB, types.EventScheduleStatusChanged))

	framesW := drain(t, watcher)
	require.Len(t, framesW, 1)
	var payload models.ScheduleStatusChangedPayload
	require.NoError(t, json.Unmarshal(framesW[0].Data, &payload))
	assert.Equal(t, int64(7), payload.ScheduleID)
	assert.Equal(t, types.StatusInProgress, payload.Status)
	assert.Equal(t, admin.UserID, payload.UpdatedBy)

	assert.Equal(t, types.StatusInProgress, f.schedules.status[7])
	assert.Equal(t, changedAt, f.schedules.timestamps[7][types.TimestampActualStart])
	assert.Equal(t, int64(2), f.notes.count)
}

func TestUpdateStatus_CompleteBroadcastsOnly(t *testing.T) {
	f := newFixture(Options{})
	f.schedules.status[7] = types.StatusInProgress
	f.schedules.parents[7] = []int64{1}

	a := f.session(t, parentA, hub.ScheduleRoom(7))

	_, err := f.service.UpdateStatus(context.Background(), driver, 7, types.StatusCompleted, nil)
	require.NoError(t, err)

	frames := drain(t, a)
	require.Len(t, frames, 1)
	assert.Equal(t, types.EventScheduleCompleted, frames[0].Event)
	assert.Equal(t, changedAt, f.schedules.timestamps[7][types.TimestampActualEnd])
	assert.Zero(t, f.notes.count)
}

func TestUpdateStatus_CancelSendsAlerts(t *testing.T) {
	f := newFixture(Options{})
	f.schedules.status[7] = types.StatusScheduled
	f.schedules.parents[7] = []int64{1}

	a := f.session(t, parentA)

	_, err := f.service.UpdateStatus(context.Background(), admin, 7, types.StatusCancelled, nil)
	require.NoError(t, err)

	frames := drain(t, a)
	require.Len(t, frames, 1)
	var note models.NewNotificationPayload
	require.NoError(t, json.Unmarshal(frames[0].Data, &note))
	assert.Equal(t, types.NotificationAlert, note.Type)
	assert.Empty(t, f.schedules.timestamps[7])
}

func TestUpdateStatus_FinalizedScheduleIsRejected(t *testing.T) {
	for _, final := range []types.ScheduleStatus{types.StatusCompleted, types.StatusCancelled} {
		t.Run(string(final), func(t *testing.T) {
			f := newFixture(Options{})
			f.schedules.status[7] = final
			f.schedules.parents[7] = []int64{1}

			a := f.session(t, parentA, hub.ScheduleRoom(7))

			_, err := f.service.UpdateStatus(context.Background(), admin, 7, types.StatusInProgress, nil)
			assert.ErrorIs(t, err, types.ErrTerminalState)

			assert.Empty(t, drain(t, a))
			assert.Zero(t, f.notes.count)
			assert.Equal(t, final, f.schedules.status[7])
		})
	}
}

func TestUpdateStatus_RepeatAfterCompletion(t *testing.T) {
	f := newFixture(Options{})
	f.schedules.status[7] = types.StatusScheduled
	f.schedules.parents[7] = []int64{1}
	a := f.session(t, parentA, hub.ScheduleRoom(7))

	for _, next := range []types.ScheduleStatus{types.StatusInProgress, types.StatusCompleted} {
		_, err := f.service.UpdateStatus(context.Background(), admin, 7, next, nil)
		require.NoError(t, err)
	}
	drain(t, a)
	sent := f.notes.count

	_, err := f.service.UpdateStatus(context.Background(), admin, 7, types.StatusInProgress, nil)
	assert.ErrorIs(t, err, types.ErrTerminalState)
	assert.Empty(t, drain(t, a))
	assert.Equal(t, sent, f.notes.count)
}

func TestUpdateStatus_ParentIsRejected(t *testing.T) {
	f := newFixture(Options{})
	f.schedules.status[7] = types.StatusScheduled

	_, err := f.service.UpdateStatus(context.Background(), parentA, 7, types.StatusInProgress, nil)
	assert.ErrorIs(t, err, types.ErrPolicyViolation)
	assert.Equal(t, types.StatusScheduled, f.schedules.status[7])
}

func TestUpdateStatus_UnknownScheduleAndStatus(t *testing.T) {
	f := newFixture(Options{})

	_, err := f.service.UpdateStatus(context.Background(), admin, 99, types.StatusInProgress, nil)
	assert.ErrorIs(t, err, types.ErrScheduleNotFound)

	_, err = f.service.UpdateStatus(context.Background(), admin, 99, "paused", nil)
	assert.ErrorIs(t, err, types.ErrMalformedEvent)
}

func TestUpdateStatus_TimestampFailureWarnsButKeepsChange(t *testing.T) {
	f := newFixture(Options{})
	f.schedules.status[7] = types.StatusScheduled
	f.schedules.stampErr = errors.New("timeout")

	a := f.session(t, parentA, hub.ScheduleRoom(7))

	var warnings []error
	_, err := f.service.UpdateStatus(context.Background(), admin, 7, types.StatusInProgress, func(err error) {
		warnings = append(warnings, err)
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusInProgress, f.schedules.status[7])
	assert.Equal(t, 1, count(drain(t, a), types.EventScheduleStatusChanged))
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], types.ErrCollaboratorFailure)
}

func TestUpdateStatus_ConcurrentRequestsApplyOnce(t *testing.T) {
	f := newFixture(Options{})
	f.schedules.status[7] = types.StatusScheduled

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		applied  int
		rejected int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.UpdateStatus(context.Background(), admin, 7, types.StatusCancelled, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				applied++
			} else {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, 7, rejected)
}

func TestUpdateStatus_EnforcedDriverAssignment(t *testing.T) {
	f := newFixture(Options{EnforceDriverAssignment: true})
	f.schedules.status[7] = types.StatusScheduled
	f.schedules.status[8] = types.StatusScheduled
	f.schedules.drivers[7] = driver.UserID

	_, err := f.service.UpdateStatus(context.Background(), driver, 8, types.StatusInProgress, nil)
	assert.ErrorIs(t, err, types.ErrPolicyViolation)

	_, err = f.service.UpdateStatus(context.Background(), driver, 7, types.StatusInProgress, nil)
	require.NoError(t, err)

	// admins are not bound to assignments
	_, err = f.service.UpdateStatus(context.Background(), admin, 8, types.StatusInProgress, nil)
	require.NoError(t, err)
}

func TestUpdateStatus_LogsCarryScheduleID(t *testing.T) {
	var buf bytes.Buffer
	f := newLoggedFixture(Options{}, &buf, logger.LevelInfo)
	f.schedules.status[7] = types.StatusInProgress

	_, err := f.service.UpdateStatus(context.Background(), driver, 7, types.StatusCompleted, nil)
	require.NoError(t, err)

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		if e["message"] == "schedule status changed" {
			entry = e
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, "7", entry["schedule_id"])
	assert.Equal(t, "update_schedule_status", entry["action"])
}
