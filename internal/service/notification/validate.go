package notification

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/pkg/validator"
)

const (
	maxTitleLen   = 255
	maxMessageLen = 2000
)

// ValidationError carries per-field messages for the transport layer.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Errors[k]))
	}
	return "invalid notification: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return types.ErrMalformedEvent
}

func ValidateDraft(v *validator.Validator, d models.NotificationDraft) {
	v.Check((d.RecipientID == nil) != (d.TargetRole == nil), "recipient", "exactly one of recipient_id and target_role must be set")
	if d.RecipientID != nil {
		v.Check(*d.RecipientID > 0, "recipient_id", "must be positive")
	}
	if d.TargetRole != nil {
		v.Check(d.TargetRole.IsValid(), "target_role", "must be one of admin, driver, parent")
	}

	v.Check(strings.TrimSpace(d.Title) != "", "title", "must be provided")
	v.Check(len(d.Title) <= maxTitleLen, "title", "must not be more than 255 bytes long")
	v.Check(strings.TrimSpace(d.Message) != "", "message", "must be provided")
	v.Check(len(d.Message) <= maxMessageLen, "message", "must not be more than 2000 bytes long")
	v.Check(d.Type.IsValid(), "type", "must be one of info, warning, alert, success")
}
