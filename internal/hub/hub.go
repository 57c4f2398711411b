package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
	"github.com/Temutjin2k/schoolbus-hub/pkg/metrics"
)

// Options tune per-session resources.
type Options struct {
	SendQueueSize int     // outbound frames buffered per session
	EventRate     float64 // inbound events per second per session, 0 disables limiting
	EventBurst    int
}

// Hub is the live session hub. It is created once at startup and injected into
// every component that manages sessions or publishes events.
type Hub struct {
	registry *Registry
	opts     Options
	log      logger.Logger
}

func New(opts Options, log logger.Logger) *Hub {
	return &Hub{
		registry: NewRegistry(),
		opts:     opts,
		log:      log,
	}
}

// Register creates a session for an authenticated identity and joins it to
// its personal and role rooms.
func (h *Hub) Register(ctx context.Context, identity models.Identity) (*Session, error) {
	var limiter *rate.Limiter
	if h.opts.EventRate > 0 {
		burst := h.opts.EventBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(h.opts.EventRate), burst)
	}

	s := newSession(uuid.NewString(), identity, h.opts.SendQueueSize, limiter)

	if err := h.registry.Add(s, UserRoom(identity.UserID), RoleRoom(identity.Role)); err != nil {
		s.close()
		return nil, fmt.Errorf("register session: %w", err)
	}

	metrics.SessionOpened(identity.Role.String())
	metrics.SetRooms(h.registry.RoomCount())

	ctx = wrap.WithAction(wrap.WithSessionID(wrap.WithUserID(ctx, identity.UserID), s.id), types.ActionSessionOpened)
	h.log.Info(ctx, "session registered", "role", identity.Role)

	return s, nil
}

// Join adds the session to the room; joining twice is a no-op success.
func (h *Hub) Join(ctx context.Context, s *Session, key RoomKey) error {
	added, err := h.registry.Join(s, key)
	if err != nil {
		return err
	}
	if added {
		metrics.SetRooms(h.registry.RoomCount())
		h.log.Debug(ctx, "joined room", "room", key.String())
	}
	return nil
}

// Leave removes the session from the room; leaving a room not joined is a no-op.
func (h *Hub) Leave(ctx context.Context, s *Session, key RoomKey) error {
	removed, err := h.registry.Leave(s, key)
	if err != nil {
		return err
	}
	if removed {
		metrics.SetRooms(h.registry.RoomCount())
		h.log.Debug(ctx, "left room", "room", key.String())
	}
	return nil
}

// Unregister removes the session from every room and closes its queue.
// Safe to call more than once and concurrently with publishes.
func (h *Hub) Unregister(ctx context.Context, s *Session) {
	rooms, ok := h.registry.Remove(s)
	s.close()
	if !ok {
		return
	}

	metrics.SessionClosed(s.identity.Role.String())
	metrics.SetRooms(h.registry.RoomCount())

	ctx = wrap.WithAction(wrap.WithSessionID(wrap.WithUserID(ctx, s.identity.UserID), s.id), types.ActionSessionClosed)
	h.log.Info(ctx, "session unregistered",
		"rooms", len(rooms),
		"dropped_frames", s.Dropped(),
		"duration", time.Since(s.connectedAt).String(),
	)
}

// Close unregisters every live session. Register fails with ErrClosed afterwards.
func (h *Hub) Close(ctx context.Context) {
	ctx = wrap.WithAction(ctx, "hub_close")

	sessions := h.registry.Close()
	for _, s := range sessions {
		h.Unregister(ctx, s)
	}

	h.log.Info(ctx, "all sessions closed", "count", len(sessions))
}

func (h *Hub) Members(key RoomKey) []*Session {
	return h.registry.Members(key)
}

func (h *Hub) RoomsOf(s *Session) []RoomKey {
	return h.registry.RoomsOf(s)
}

func (h *Hub) IsMember(s *Session, key RoomKey) bool {
	return h.registry.IsMember(s, key)
}

func (h *Hub) SessionCount() int {
	return h.registry.SessionCount()
}

func (h *Hub) RoomCount() int {
	return h.registry.RoomCount()
}
