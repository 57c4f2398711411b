package models

import (
	"time"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
)

// NotificationDraft is a notification not yet persisted.
// Exactly one of RecipientID and TargetRole is set.
type NotificationDraft struct {
	RecipientID *int64                 `json:"recipient_id,omitempty"`
	TargetRole  *types.UserRole        `json:"target_role,omitempty"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Type        types.NotificationType `json:"type"`
}

// NotificationEnvelope wraps an already persisted notification for live delivery.
type NotificationEnvelope struct {
	ID          int64                  `json:"notification_id"`
	RecipientID *int64                 `json:"recipient_id,omitempty"`
	TargetRole  *types.UserRole        `json:"target_role,omitempty"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Type        types.NotificationType `json:"type"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Envelope builds the delivery unit for a draft persisted under id.
func (d NotificationDraft) Envelope(id int64, at time.Time) NotificationEnvelope {
	return NotificationEnvelope{
		ID:          id,
		RecipientID: d.RecipientID,
		TargetRole:  d.TargetRole,
		Title:       d.Title,
		Message:     d.Message,
		Type:        d.Type,
		Timestamp:   at,
	}
}

// Notification is a stored notification as returned by the pull path.
type Notification struct {
	ID        int64                  `json:"id"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Type      types.NotificationType `json:"type"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
}
