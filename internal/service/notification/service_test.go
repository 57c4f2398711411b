package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
)

var at = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

// fakeStore keeps rows in memory; a transaction stages rows until commit.
type fakeStore struct {
	nextID int64
	rows   []models.NotificationDraft
	failOn int // fail the n-th insert, 1-based; 0 disables
	calls  int
}

func (f *fakeStore) CreateNotification(ctx context.Context, draft models.NotificationDraft) (int64, error) {
	f.calls++
	if f.failOn > 0 && f.calls == f.failOn {
		return 0, errors.New("insert failed")
	}
	f.nextID++
	f.rows = append(f.rows, draft)
	return f.nextID, nil
}

func (f *fakeStore) ListForUser(ctx context.Context, userID int64, role types.UserRole, limit int) ([]models.Notification, error) {
	out := []models.Notification{}
	for i, d := range f.rows {
		if (d.RecipientID != nil && *d.RecipientID == userID) || (d.TargetRole != nil && *d.TargetRole == role) {
			out = append(out, models.Notification{ID: int64(i + 1), Title: d.Title})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := len(t.store.rows)
	if err := fn(ctx); err != nil {
		t.store.rows = t.store.rows[:snapshot]
		return err
	}
	return nil
}

type fixture struct {
	hub     *hub.Hub
	store   *fakeStore
	service *Service
}

func newFixture() *fixture {
	log := logger.New(io.Discard, "test", logger.LevelError)
	store := &fakeStore{}
	h := hub.New(hub.Options{SendQueueSize: 16}, log)

	s := New(store, h, &fakeTx{store: store}, log)
	s.now = func() time.Time { return at }

	return &fixture{hub: h, store: store, service: s}
}

func (f *fixture) session(t *testing.T, userID int64, role types.UserRole) *hub.Session {
	t.Helper()
	s, err := f.hub.Register(context.Background(), models.Identity{UserID: userID, Role: role})
	require.NoError(t, err)
	return s
}

func notifications(t *testing.T, s *hub.Session) []models.NewNotificationPayload {
	t.Helper()
	var out []models.NewNotificationPayload
	for {
		select {
		case raw := <-s.Messages():
			var fr struct {
				Event types.ServerEvent             `json:"event"`
				Data  models.NewNotificationPayload `json:"data"`
			}
			require.NoError(t, json.Unmarshal(raw, &fr))
			require.Equal(t, types.EventNewNotification, fr.Event)
			out = append(out, fr.Data)
		default:
			return out
		}
	}
}

func ptr[T any](v T) *T { return &v }

func TestDeliver_PersonalReachesEverySessionOfRecipient(t *testing.T) {
	f := newFixture()
	phone := f.session(t, 7, types.RoleParent)
	laptop := f.session(t, 7, types.RoleParent)
	other := f.session(t, 8, types.RoleParent)

	n := f.service.Deliver(context.Background(), models.NotificationEnvelope{
		ID: 99, RecipientID: ptr(int64(7)), Title: "Hi", Message: "There", Type: types.NotificationInfo, Timestamp: at,
	})
	assert.Equal(t, 2, n)

	for _, s := range []*hub.Session{phone, laptop} {
		got := notifications(t, s)
		require.Len(t, got, 1)
		assert.Equal(t, int64(99), got[0].NotificationID)
		assert.Equal(t, types.NotificationInfo, got[0].Type)
	}
	assert.Empty(t, notifications(t, other))
}

func TestDeliver_RoleBroadcast(t *testing.T) {
	f := newFixture()
	d1 := f.session(t, 1, types.RoleDriver)
	d2 := f.session(t, 2, types.RoleDriver)
	p := f.session(t, 3, types.RoleParent)

	n := f.service.Deliver(context.Background(), models.NotificationEnvelope{
		ID: 1, TargetRole: ptr(types.RoleDriver), Title: "Fuel", Message: "Refuel today", Type: types.NotificationWarning,
	})
	assert.Equal(t, 2, n)
	assert.Len(t, notifications(t, d1), 1)
	assert.Len(t, notifications(t, d2), 1)
	assert.Empty(t, notifications(t, p))
}

func TestDeliver_NoRecipientIsSkipped(t *testing.T) {
	f := newFixture()
	assert.Equal(t, 0, f.service.Deliver(context.Background(), models.NotificationEnvelope{ID: 1}))
}

func TestDeliver_OfflineRecipient(t *testing.T) {
	f := newFixture()
	assert.Equal(t, 0, f.service.Deliver(context.Background(), models.NotificationEnvelope{ID: 1, RecipientID: ptr(int64(404))}))
}

func TestNotify_PersistsThenDelivers(t *testing.T) {
	f := newFixture()
	s := f.session(t, 5, types.RoleParent)

	env, err := f.service.Notify(context.Background(), models.NotificationDraft{
		RecipientID: ptr(int64(5)), Title: "Late bus", Message: "10 minutes late", Type: types.NotificationWarning,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.ID)
	assert.True(t, at.Equal(env.Timestamp))

	got := notifications(t, s)
	require.Len(t, got, 1)
	assert.Equal(t, "Late bus", got[0].Title)
}

func TestNotify_InvalidDraft(t *testing.T) {
	f := newFixture()

	_, err := f.service.Notify(context.Background(), models.NotificationDraft{
		RecipientID: ptr(int64(5)), TargetRole: ptr(types.RoleAdmin), Type: "urgent",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, types.ErrMalformedEvent)
	assert.Contains(t, verr.Errors, "recipient")
	assert.Contains(t, verr.Errors, "title")
	assert.Contains(t, verr.Errors, "message")
	assert.Contains(t, verr.Errors, "type")
	assert.Empty(t, f.store.rows)
}

func TestNotify_StoreFailure(t *testing.T) {
	f := newFixture()
	f.store.failOn = 1
	s := f.session(t, 5, types.RoleParent)

	_, err := f.service.Notify(context.Background(), models.NotificationDraft{
		RecipientID: ptr(int64(5)), Title: "t", Message: "m", Type: types.NotificationInfo,
	})
	assert.ErrorIs(t, err, types.ErrCollaboratorFailure)
	assert.Empty(t, notifications(t, s))
}

func TestNotifyUsers_DistinctRecipients(t *testing.T) {
	f := newFixture()
	a := f.session(t, 1, types.RoleParent)
	b := f.session(t, 2, types.RoleParent)

	delivered, err := f.service.NotifyUsers(context.Background(), []int64{1, 2, 1, 0, 3}, "Bus started", "On the way", types.NotificationInfo)
	require.NoError(t, err)

	assert.Equal(t, 2, delivered)
	assert.Len(t, f.store.rows, 3)
	assert.Len(t, notifications(t, a), 1)
	assert.Len(t, notifications(t, b), 1)
}

func TestNotifyUsers_RollbackDeliversNothing(t *testing.T) {
	f := newFixture()
	f.store.failOn = 2
	a := f.session(t, 1, types.RoleParent)

	_, err := f.service.NotifyUsers(context.Background(), []int64{1, 2}, "t", "m", types.NotificationAlert)
	assert.ErrorIs(t, err, types.ErrCollaboratorFailure)

	assert.Empty(t, f.store.rows)
	assert.Empty(t, notifications(t, a))
}

func TestList_ClampsLimit(t *testing.T) {
	f := newFixture()
	for range 3 {
		_, err := f.service.Notify(context.Background(), models.NotificationDraft{
			TargetRole: ptr(types.RoleParent), Title: "t", Message: "m", Type: types.NotificationInfo,
		})
		require.NoError(t, err)
	}

	list, err := f.service.List(context.Background(), models.Identity{UserID: 9, Role: types.RoleParent}, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.service.List(context.Background(), models.Identity{UserID: 9, Role: types.RoleParent}, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
