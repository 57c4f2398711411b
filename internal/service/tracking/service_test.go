package tracking

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
	"github.com/Temutjin2k/schoolbus-hub/pkg/async"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
)

var receivedAt = time.Date(2025, 9, 1, 7, 45, 0, 0, time.UTC)

type syncRunner struct {
	reject bool
	names  []string
}

func (r *syncRunner) Submit(ctx context.Context, name string, fn async.Task) bool {
	if r.reject {
		return false
	}
	r.names = append(r.names, name)
	_ = fn(ctx)
	return true
}

type fakeStore struct {
	mu    sync.Mutex
	saved []models.LocationSample
	err   error
}

func (f *fakeStore) SaveLocation(ctx context.Context, sample models.LocationSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, sample)
	return nil
}

type fakeFeed struct {
	published []models.LocationSample
}

func (f *fakeFeed) PublishLocation(ctx context.Context, sample models.LocationSample) error {
	f.published = append(f.published, sample)
	return nil
}

type fakeAssignments struct {
	assigned map[int64]int64 // schedule -> driver
}

func (f *fakeAssignments) IsDriverAssigned(ctx context.Context, scheduleID, driverID int64) (bool, error) {
	return f.assigned[scheduleID] == driverID, nil
}

type fixture struct {
	hub     *hub.Hub
	runner  *syncRunner
	store   *fakeStore
	feed    *fakeFeed
	service *Service
}

func newFixture(opts Options) *fixture {
	return newLoggedFixture(opts, io.Discard, logger.LevelError)
}

func newLoggedFixture(opts Options, w io.Writer, level string) *fixture {
	log := logger.New(w, "test", level)
	f := &fixture{
		hub:    hub.New(hub.Options{SendQueueSize: 16}, log),
		runner: &syncRunner{},
		store:  &fakeStore{},
		feed:   &fakeFeed{},
	}
	f.service = New(f.hub, f.runner, f.store, f.feed, &fakeAssignments{assigned: map[int64]int64{42: 1}}, opts, log)
	f.service.now = func() time.Time { return receivedAt }
	return f
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

var (
	driver = models.Identity{UserID: 1, Role: types.RoleDriver, Name: "Driver Dan"}
	parent = models.Identity{UserID: 2, Role: types.RoleParent, Name: "Parent Pat"}
)

func TestHandle_DriverSampleReachesScheduleRoom(t *testing.T) {
	f := newFixture(Options{})
	room := hub.ScheduleRoom(42)
	d := f.session(t, driver, room)
	p := f.session(t, parent, room)
	other := f.session(t, models.Identity{UserID: 3, Role: types.RoleParent}, hub.ScheduleRoom(43))

	_, err := f.service.Handle(context.Background(), driver, models.LocationSample{
		ScheduleID: 42,
		Latitude:   10.0,
		Longitude:  106.0,
	}, nil)
	require.NoError(t, err)

	frames := drain(t, p)
	require.Len(t, frames, 1)
	assert.Equal(t, types.EventLocationUpdated, frames[0].Event)

	var got models.LocationUpdatedPayload
	require.NoError(t, json.Unmarshal(frames[0].Data, &got))
	assert.Equal(t, int64(42), got.ScheduleID)
	assert.Equal(t, 10.0, got.Latitude)
	assert.Equal(t, 106.0, got.Longitude)
	assert.Equal(t, "Driver Dan", got.DriverName)
	assert.True(t, receivedAt.Equal(got.Timestamp))

	assert.Len(t, drain(t, d), 1)
	assert.Empty(t, drain(t, other))

	require.Len(t, f.store.saved, 1)
	assert.Equal(t, int64(1), f.store.saved[0].DriverID)
	assert.Len(t, f.feed.published, 1)
}

func TestHandle_ParentIsRejected(t *testing.T) {
	f := newFixture(Options{})
	p := f.session(t, parent, hub.ScheduleRoom(42))

	_, err := f.service.Handle(context.Background(), parent, models.LocationSample{ScheduleID: 42, Latitude: 10, Longitude: 106}, nil)
	assert.ErrorIs(t, err, types.ErrPolicyViolation)

	assert.Empty(t, drain(t, p))
	assert.Empty(t, f.store.saved)
}

func TestHandle_OutOfRangeIsRejected(t *testing.T) {
	f := newFixture(Options{})
	p := f.session(t, parent, hub.ScheduleRoom(42))

	heading := 400.0
	for _, sample := range []models.LocationSample{
		{ScheduleID: 42, Latitude: 91, Longitude: 0},
		{ScheduleID: 42, Latitude: 0, Longitude: -181},
		{ScheduleID: 0, Latitude: 1, Longitude: 1},
		{ScheduleID: 42, Latitude: 1, Longitude: 1, Heading: &heading},
	} {
		_, err := f.service.Handle(context.Background(), driver, sample, nil)
		assert.ErrorIs(t, err, types.ErrMalformedEvent)
	}

	assert.Empty(t, drain(t, p))
}

func TestHandle_PersistFailureDoesNotBlockBroadcast(t *testing.T) {
	f := newFixture(Options{})
	f.store.err = errors.New("connection refused")
	p := f.session(t, parent, hub.ScheduleRoom(42))

	var warnings []error
	_, err := f.service.Handle(context.Background(), driver, models.LocationSample{ScheduleID: 42, Latitude: 1, Longitude: 2}, func(err error) {
		warnings = append(warnings, err)
	})
	require.NoError(t, err)

	assert.Len(t, drain(t, p), 1)
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], types.ErrCollaboratorFailure)
}

func TestHandle_SaturatedRunnerWarns(t *testing.T) {
	f := newFixture(Options{})
	f.runner.reject = true
	p := f.session(t, parent, hub.ScheduleRoom(42))

	var warned bool
	_, err := f.service.Handle(context.Background(), driver, models.LocationSample{ScheduleID: 42, Latitude: 1, Longitude: 2}, func(error) { warned = true })
	require.NoError(t, err)

	assert.Len(t, drain(t, p), 1)
	assert.True(t, warned)
}

func TestHandle_EnforcedAssignment(t *testing.T) {
	f := newFixture(Options{EnforceAssignment: true})
	p := f.session(t, parent, hub.ScheduleRoom(42), hub.ScheduleRoom(50))

	_, err := f.service.Handle(context.Background(), driver, models.LocationSample{ScheduleID: 50, Latitude: 1, Longitude: 2}, nil)
	assert.ErrorIs(t, err, types.ErrPolicyViolation)

	_, err = f.service.Handle(context.Background(), driver, models.LocationSample{ScheduleID: 42, Latitude: 1, Longitude: 2}, nil)
	require.NoError(t, err)

	assert.Len(t, drain(t, p), 1)
}

func TestHandle_LogsCarryScheduleID(t *testing.T) {
	var buf bytes.Buffer
	f := newLoggedFixture(Options{}, &buf, logger.LevelDebug)

	_, err := f.service.Handle(context.Background(), driver, models.LocationSample{ScheduleID: 42, Latitude: 43.2, Longitude: 76.9}, nil)
	require.NoError(t, err)

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		if e["message"] == "location broadcast" {
			entry = e
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, "42", entry["schedule_id"])
	assert.Equal(t, "location_update", entry["action"])
}
