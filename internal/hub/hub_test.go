package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
)

func TestHub_RegisterAutoJoinsPersonalAndRoleRooms(t *testing.T) {
	h := newTestHub(8)
	ctx := context.Background()

	s, err := h.Register(ctx, identity(11, types.RoleParent))
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID())
	assert.ElementsMatch(t, []RoomKey{UserRoom(11), RoleRoom(types.RoleParent)}, h.RoomsOf(s))
	assert.Equal(t, 1, h.SessionCount())
}

func TestHub_PublishReachesExactlyTheRoom(t *testing.T) {
	h := newTestHub(8)
	ctx := context.Background()

	in1, err := h.Register(ctx, identity(1, types.RoleParent))
	require.NoError(t, err)
	in2, err := h.Register(ctx, identity(2, types.RoleDriver))
	require.NoError(t, err)
	out, err := h.Register(ctx, identity(3, types.RoleParent))
	require.NoError(t, err)

	require.NoError(t, h.Join(ctx, in1, ScheduleRoom(42)))
	require.NoError(t, h.Join(ctx, in2, ScheduleRoom(42)))
	require.NoError(t, h.Join(ctx, out, ScheduleRoom(43)))

	n := h.Publish(ctx, ScheduleRoom(42), types.EventScheduleCompleted, models.ScheduleCompletedPayload{ScheduleID: 42})
	assert.Equal(t, 2, n)

	for _, s := range []*Session{in1, in2} {
		frames := drain(t, s)
		require.Len(t, frames, 1)
		assert.Equal(t, types.EventScheduleCompleted, frames[0].Event)

		var p models.ScheduleCompletedPayload
		require.NoError(t, json.Unmarshal(frames[0].Data, &p))
		assert.Equal(t, int64(42), p.ScheduleID)
	}
	assert.Empty(t, drain(t, out))
}

func TestHub_JoinTwiceDeliversOnce(t *testing.T) {
	h := newTestHub(8)
	ctx := context.Background()

	s, err := h.Register(ctx, identity(1, types.RoleParent))
	require.NoError(t, err)
	require.NoError(t, h.Join(ctx, s, ScheduleRoom(1)))
	require.NoError(t, h.Join(ctx, s, ScheduleRoom(1)))

	h.Publish(ctx, ScheduleRoom(1), types.EventRoomJoined, models.RoomPayload{Room: "x"})
	assert.Len(t, drain(t, s), 1)
}

func TestHub_PublishExceptSkipsSender(t *testing.T) {
	h := newTestHub(8)
	ctx := context.Background()

	a, err := h.Register(ctx, identity(1, types.RoleParent))
	require.NoError(t, err)
	b, err := h.Register(ctx, identity(2, types.RoleAdmin))
	require.NoError(t, err)

	room := ConversationRoom(5)
	require.NoError(t, h.Join(ctx, a, room))
	require.NoError(t, h.Join(ctx, b, room))

	n := h.PublishExcept(ctx, room, a, types.EventUserTyping, models.UserTypingPayload{ConversationID: 5, UserID: 1})
	assert.Equal(t, 1, n)
	assert.Empty(t, drain(t, a))
	assert.Len(t, drain(t, b), 1)
}

func TestHub_UnregisteredSessionReceivesNothing(t *testing.T) {
	h := newTestHub(8)
	ctx := context.Background()

	s, err := h.Register(ctx, identity(1, types.RoleParent))
	require.NoError(t, err)
	require.NoError(t, h.Join(ctx, s, ScheduleRoom(42)))

	h.Unregister(ctx, s)
	h.Unregister(ctx, s)

	for _, room := range []RoomKey{ScheduleRoom(42), UserRoom(1), RoleRoom(types.RoleParent)} {
		assert.Equal(t, 0, h.Publish(ctx, room, types.EventScheduleCompleted, nil))
		assert.Empty(t, h.Members(room))
	}
	assert.Equal(t, 0, h.SessionCount())
	assert.Equal(t, 0, h.RoomCount())
	assert.ErrorIs(t, h.Join(ctx, s, ScheduleRoom(42)), ErrSessionNotFound)
}

func TestHub_PreservesPerSourceOrder(t *testing.T) {
	h := newTestHub(64)
	ctx := context.Background()

	s, err := h.Register(ctx, identity(1, types.RoleParent))
	require.NoError(t, err)
	require.NoError(t, h.Join(ctx, s, ScheduleRoom(1)))

	for i := range 20 {
		h.Publish(ctx, ScheduleRoom(1), types.EventScheduleCompleted, models.ScheduleCompletedPayload{ScheduleID: int64(i)})
	}

	frames := drain(t, s)
	require.Len(t, frames, 20)
	for i, f := range frames {
		var p models.ScheduleCompletedPayload
		require.NoError(t, json.Unmarshal(f.Data, &p))
		assert.Equal(t, int64(i), p.ScheduleID)
	}
}

func TestHub_StalledClientDoesNotBlockPublisher(t *testing.T) {
	h := newTestHub(2)
	ctx := context.Background()

	stalled, err := h.Register(ctx, identity(1, types.RoleParent))
	require.NoError(t, err)

	for range 100 {
		h.Publish(ctx, UserRoom(1), types.EventNewNotification, nil)
	}

	assert.Len(t, drain(t, stalled), 2)
	assert.Equal(t, 98, stalled.Dropped())
}

func TestHub_UnregisterRacesWithPublish(t *testing.T) {
	h := newTestHub(4)
	ctx := context.Background()

	sessions := make([]*Session, 0, 32)
	for i := range 32 {
		s, err := h.Register(ctx, identity(int64(i+1), types.RoleParent))
		require.NoError(t, err)
		require.NoError(t, h.Join(ctx, s, ScheduleRoom(1)))
		sessions = append(sessions, s)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 200 {
			h.Publish(ctx, ScheduleRoom(1), types.EventLocationUpdated, nil)
		}
	}()
	go func() {
		defer wg.Done()
		for _, s := range sessions {
			h.Unregister(ctx, s)
		}
	}()
	wg.Wait()

	assert.Equal(t, 0, h.Publish(ctx, ScheduleRoom(1), types.EventLocationUpdated, nil))
	assert.Equal(t, 0, h.SessionCount())
}

func TestHub_CloseUnregistersAll(t *testing.T) {
	h := newTestHub(4)
	ctx := context.Background()

	a, err := h.Register(ctx, identity(1, types.RoleParent))
	require.NoError(t, err)
	b, err := h.Register(ctx, identity(2, types.RoleDriver))
	require.NoError(t, err)

	h.Close(ctx)

	assert.Equal(t, 0, h.SessionCount())
	for _, s := range []*Session{a, b} {
		select {
		case <-s.Done():
		default:
			t.Fatal("session must be closed")
		}
	}
}

func TestHub_SendEncodesEnvelope(t *testing.T) {
	h := newTestHub(4)
	ctx := context.Background()

	s, err := h.Register(ctx, identity(1, types.RoleParent))
	require.NoError(t, err)

	require.True(t, h.Send(ctx, s, types.EventError, models.MessagePayload{Message: "bad"}))

	raw := <-s.Messages()
	assert.JSONEq(t, `{"event":"error","data":{"message":"bad"}}`, string(raw))
}

func TestHub_RegisterAfterClose(t *testing.T) {
	h := newTestHub(4)
	ctx := context.Background()

	h.Close(ctx)

	s, err := h.Register(ctx, identity(1, types.RoleParent))
	require.ErrorIs(t, err, ErrClosed)
	assert.Nil(t, s)
	assert.Equal(t, 0, h.SessionCount())
	assert.Equal(t, 0, h.RoomCount())
}
