package hub

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
)

// RoomKind is the kind part of a room address
type RoomKind string

const (
	KindSchedule     RoomKind = "schedule"
	KindUser         RoomKind = "user"
	KindRole         RoomKind = "role"
	KindConversation RoomKind = "conversation"
)

// RoomKey is a typed broadcast address: kind plus identifier.
// Its textual form is "<kind>:<id>".
type RoomKey struct {
	Kind RoomKind
	ID   string
}

func (k RoomKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

func ScheduleRoom(scheduleID int64) RoomKey {
	return RoomKey{Kind: KindSchedule, ID: strconv.FormatInt(scheduleID, 10)}
}

func UserRoom(userID int64) RoomKey {
	return RoomKey{Kind: KindUser, ID: strconv.FormatInt(userID, 10)}
}

func RoleRoom(role types.UserRole) RoomKey {
	return RoomKey{Kind: KindRole, ID: role.String()}
}

func ConversationRoom(conversationID int64) RoomKey {
	return RoomKey{Kind: KindConversation, ID: strconv.FormatInt(conversationID, 10)}
}

// ParseRoomKey parses "<kind>:<id>". Numeric kinds require a positive integer id,
// role rooms require a known role.
func ParseRoomKey(s string) (RoomKey, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || id == "" {
		return RoomKey{}, fmt.Errorf("%w: %q must look like <kind>:<id>", types.ErrInvalidRoom, s)
	}

	switch RoomKind(kind) {
	case KindSchedule, KindUser, KindConversation:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 {
			return RoomKey{}, fmt.Errorf("%w: %q id must be a positive integer", types.ErrInvalidRoom, s)
		}
		return RoomKey{Kind: RoomKind(kind), ID: strconv.FormatInt(n, 10)}, nil
	case KindRole:
		if !types.UserRole(id).IsValid() {
			return RoomKey{}, fmt.Errorf("%w: unknown role %q", types.ErrInvalidRoom, id)
		}
		return RoomKey{Kind: KindRole, ID: id}, nil
	default:
		return RoomKey{}, fmt.Errorf("%w: unknown room kind %q", types.ErrInvalidRoom, kind)
	}
}

// Joinable reports whether clients may join or leave the room explicitly.
// Personal and role rooms are assigned at registration only.
func (k RoomKey) Joinable() bool {
	return k.Kind == KindSchedule || k.Kind == KindConversation
}
