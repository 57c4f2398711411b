package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/pkg/metrics"
)

// Publish delivers the event to every session currently in the room and
// returns how many sessions it was enqueued for. Delivery is best-effort:
// no acknowledgement, no retry. Frames published in sequence by one caller
// reach each member in that order.
func (h *Hub) Publish(ctx context.Context, key RoomKey, event types.ServerEvent, data any) int {
	return h.publish(ctx, key, nil, event, data)
}

// PublishExcept is Publish that skips one session, typically the sender.
func (h *Hub) PublishExcept(ctx context.Context, key RoomKey, except *Session, event types.ServerEvent, data any) int {
	return h.publish(ctx, key, except, event, data)
}

// Send delivers the event to a single session.
func (h *Hub) Send(ctx context.Context, s *Session, event types.ServerEvent, data any) bool {
	frame, err := encode(event, data)
	if err != nil {
		h.log.Error(ctx, "failed to encode frame", err, "event", event)
		return false
	}
	return s.send(frame)
}

func (h *Hub) publish(ctx context.Context, key RoomKey, except *Session, event types.ServerEvent, data any) int {
	frame, err := encode(event, data)
	if err != nil {
		h.log.Error(ctx, "failed to encode frame", err, "event", event, "room", key.String())
		return 0
	}

	delivered := 0
	for _, s := range h.registry.Members(key) {
		if except != nil && s.id == except.id {
			continue
		}
		if s.send(frame) {
			delivered++
		}
	}

	metrics.RecordPublish(event.String(), delivered)
	h.log.Debug(ctx, "published", "event", event, "room", key.String(), "delivered", delivered)

	return delivered
}

func encode(event types.ServerEvent, data any) ([]byte, error) {
	frame, err := json.Marshal(models.Outbound{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return frame, nil
}
