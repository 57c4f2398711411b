package types

// ClientEvent is an inbound event name sent by a client
type ClientEvent string

const (
	EventJoinRoom             ClientEvent = "join-room"
	EventLeaveRoom            ClientEvent = "leave-room"
	EventLocationUpdate       ClientEvent = "location-update"
	EventScheduleStatusUpdate ClientEvent = "schedule-status-update"
	EventTyping               ClientEvent = "typing"
	EventStopTyping           ClientEvent = "stop-typing"
)

// ServerEvent is an outbound event name pushed to clients
type ServerEvent string

func (e ServerEvent) String() string {
	return string(e)
}

const (
	EventRoomJoined            ServerEvent = "room-joined"
	EventRoomLeft              ServerEvent = "room-left"
	EventLocationUpdated       ServerEvent = "location-updated"
	EventScheduleStatusChanged ServerEvent = "schedule-status-changed"
	EventScheduleCompleted     ServerEvent = "schedule-completed"
	EventNewNotification       ServerEvent = "new-notification"
	EventUserTyping            ServerEvent = "user-typing"
	EventUserStopTyping        ServerEvent = "user-stop-typing"
	EventError                 ServerEvent = "error"
	EventWarning               ServerEvent = "warning"
)
