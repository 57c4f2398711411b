package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
)

func TestParseRoomKey(t *testing.T) {
	tests := []struct {
		in      string
		want    RoomKey
		wantErr bool
	}{
		{in: "schedule:42", want: ScheduleRoom(42)},
		{in: " conversation:7 ", want: ConversationRoom(7)},
		{in: "user:007", want: UserRoom(7)},
		{in: "role:parent", want: RoleRoom(types.RoleParent)},
		{in: "schedule-42", wantErr: true},
		{in: "schedule:", wantErr: true},
		{in: "schedule:0", wantErr: true},
		{in: "schedule:abc", wantErr: true},
		{in: "role:janitor", wantErr: true},
		{in: "bus:1", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRoomKey(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidRoom)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoomKey_StringAndJoinable(t *testing.T) {
	assert.Equal(t, "schedule:42", ScheduleRoom(42).String())
	assert.Equal(t, "role:admin", RoleRoom(types.RoleAdmin).String())

	assert.True(t, ScheduleRoom(1).Joinable())
	assert.True(t, ConversationRoom(1).Joinable())
	assert.False(t, UserRoom(1).Joinable())
	assert.False(t, RoleRoom(types.RoleDriver).Joinable())
}

func TestRoomKey_KindsDoNotCollide(t *testing.T) {
	assert.NotEqual(t, ScheduleRoom(5), UserRoom(5))
	assert.NotEqual(t, ScheduleRoom(5), ConversationRoom(5))
}
