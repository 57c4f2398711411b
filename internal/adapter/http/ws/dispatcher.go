package wshandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Temutjin2k/schoolbus-hub/internal/adapter/http/ws/dto"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
	"github.com/Temutjin2k/schoolbus-hub/pkg/metrics"
)

const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultIgnored  = "ignored"
	resultFailed   = "failed"
)

type handlerFunc func(ctx context.Context, s *hub.Session, data json.RawMessage) error

// Dispatcher validates inbound client frames and routes them through a
// fixed handler table. Rejections are acknowledged to the sender only.
type Dispatcher struct {
	hub       SessionHub
	locations LocationService
	schedules ScheduleService
	handlers  map[types.ClientEvent]handlerFunc

	l logger.Logger
}

func NewDispatcher(h SessionHub, locations LocationService, schedules ScheduleService, l logger.Logger) *Dispatcher {
	d := &Dispatcher{
		hub:       h,
		locations: locations,
		schedules: schedules,
		l:         l,
	}

	d.handlers = map[types.ClientEvent]handlerFunc{
		types.EventJoinRoom:             d.joinRoom,
		types.EventLeaveRoom:            d.leaveRoom,
		types.EventLocationUpdate:       d.locationUpdate,
		types.EventScheduleStatusUpdate: d.scheduleStatusUpdate,
		types.EventTyping:               d.typing(types.EventUserTyping),
		types.EventStopTyping:           d.typing(types.EventUserStopTyping),
	}

	return d
}

// Dispatch handles one raw inbound frame. It never panics and never returns
// an error: every failure becomes an acknowledgement to s.
func (d *Dispatcher) Dispatch(ctx context.Context, s *hub.Session, raw []byte) {
	ctx = wrap.WithAction(ctx, types.ActionDispatchEvent)

	var in dto.Inbound
	if err := json.Unmarshal(raw, &in); err != nil || in.Event == "" {
		metrics.RecordInbound("unknown", resultRejected)
		errorResponse(ctx, d.hub, s, fmt.Errorf("%w: frame must be {\"event\": ..., \"data\": ...}", types.ErrMalformedEvent))
		return
	}

	handle, ok := d.handlers[in.Event]
	if !ok {
		metrics.RecordInbound("unknown", resultIgnored)
		d.l.Debug(ctx, "unknown event ignored", "event", in.Event)
		return
	}

	event := string(in.Event)

	if !s.Allow() {
		metrics.RecordInbound(event, resultRejected)
		errorResponse(ctx, d.hub, s, fmt.Errorf("%w: %w", types.ErrPolicyViolation, types.ErrRateLimited))
		return
	}

	err := d.safeHandle(ctx, handle, s, in.Data)
	switch {
	case err == nil:
		metrics.RecordInbound(event, resultOK)
	case isClientError(err):
		metrics.RecordInbound(event, resultRejected)
		d.l.Debug(ctx, "event rejected", "event", event, "reason", err.Error())
		errorResponse(ctx, d.hub, s, err)
	default:
		metrics.RecordInbound(event, resultFailed)
		d.l.Error(wrap.ErrorCtx(ctx, err), "event handler failed", err, "event", event)
		errorResponse(ctx, d.hub, s, err)
	}
}

func (d *Dispatcher) safeHandle(ctx context.Context, handle handlerFunc, s *hub.Session, data json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handle(ctx, s, data)
}

func isClientError(err error) bool {
	for _, target := range []error{
		types.ErrMalformedEvent,
		types.ErrPolicyViolation,
		types.ErrTerminalState,
		types.ErrInvalidTransition,
		types.ErrStatusConflict,
		types.ErrScheduleNotFound,
		types.ErrInvalidRoom,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// warner reports background side-effect failures to the acting session.
func (d *Dispatcher) warner(ctx context.Context, s *hub.Session) func(error) {
	return func(err error) {
		d.l.Warn(ctx, "side effect failed", "reason", err.Error())
		warningResponse(ctx, d.hub, s, err)
	}
}

func (d *Dispatcher) joinRoom(ctx context.Context, s *hub.Session, data json.RawMessage) error {
	key, err := d.explicitRoom(data)
	if err != nil {
		return err
	}
	if err := d.hub.Join(ctx, s, key); err != nil {
		return err
	}
	d.hub.Send(ctx, s, types.EventRoomJoined, models.RoomPayload{Room: key.String()})
	return nil
}

func (d *Dispatcher) leaveRoom(ctx context.Context, s *hub.Session, data json.RawMessage) error {
	key, err := d.explicitRoom(data)
	if err != nil {
		return err
	}
	if err := d.hub.Leave(ctx, s, key); err != nil {
		return err
	}
	d.hub.Send(ctx, s, types.EventRoomLeft, models.RoomPayload{Room: key.String()})
	return nil
}

// explicitRoom parses a room a client may join or leave by itself.
func (d *Dispatcher) explicitRoom(data json.RawMessage) (hub.RoomKey, error) {
	var req dto.RoomReq
	if err := decode(data, &req); err != nil {
		return hub.RoomKey{}, err
	}

	key, err := hub.ParseRoomKey(req.Room)
	if err != nil {
		return hub.RoomKey{}, fmt.Errorf("%w: %w", types.ErrMalformedEvent, err)
	}
	if !key.Joinable() {
		return hub.RoomKey{}, fmt.Errorf("%w: %s rooms are assigned automatically", types.ErrPolicyViolation, key.Kind)
	}
	return key, nil
}

func (d *Dispatcher) locationUpdate(ctx context.Context, s *hub.Session, data json.RawMessage) error {
	var req dto.LocationUpdateReq
	if err := decode(data, &req); err != nil {
		return err
	}

	_, err := d.locations.Handle(ctx, s.Identity(), req.Sample(), d.warner(ctx, s))
	return err
}

func (d *Dispatcher) scheduleStatusUpdate(ctx context.Context, s *hub.Session, data json.RawMessage) error {
	var req dto.StatusUpdateReq
	if err := decode(data, &req); err != nil {
		return err
	}

	_, err := d.schedules.UpdateStatus(ctx, s.Identity(), *req.ScheduleID, req.Status, d.warner(ctx, s))
	return err
}

func (d *Dispatcher) typing(out types.ServerEvent) handlerFunc {
	return func(ctx context.Context, s *hub.Session, data json.RawMessage) error {
		var req dto.TypingReq
		if err := decode(data, &req); err != nil {
			return err
		}

		identity := s.Identity()
		d.hub.PublishExcept(ctx, hub.ConversationRoom(*req.ConversationID), s, out, models.UserTypingPayload{
			ConversationID: *req.ConversationID,
			UserID:         identity.UserID,
			UserName:       identity.Name,
		})
		return nil
	}
}
