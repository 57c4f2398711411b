package dto

import (
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/pkg/validator"
)

type CreateNotificationReq struct {
	RecipientID *int64                 `json:"recipient_id,omitempty"`
	TargetRole  *types.UserRole        `json:"target_role,omitempty"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Type        types.NotificationType `json:"type"`
}

func (r *CreateNotificationReq) Validate(v *validator.Validator) {
	v.Check(r.RecipientID != nil || r.TargetRole != nil, "recipient_id", "recipient_id or target_role must be provided")
	v.Check(r.Title != "", "title", "must be provided")
	v.Check(r.Message != "", "message", "must be provided")
	v.Check(r.Type == "" || r.Type.IsValid(), "type", "must be one of info, warning, alert, success")
}

// ToModel defaults the category to info.
func (r *CreateNotificationReq) ToModel() models.NotificationDraft {
	typ := r.Type
	if typ == "" {
		typ = types.NotificationInfo
	}

	return models.NotificationDraft{
		RecipientID: r.RecipientID,
		TargetRole:  r.TargetRole,
		Title:       r.Title,
		Message:     r.Message,
		Type:        typ,
	}
}
