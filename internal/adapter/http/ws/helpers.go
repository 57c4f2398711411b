package wshandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
	"github.com/Temutjin2k/schoolbus-hub/pkg/validator"
)

// validationError is a rejected payload with per-field messages.
type validationError struct {
	fields map[string]string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("invalid event payload: %v", e.fields)
}

func (e *validationError) Unwrap() error {
	return types.ErrMalformedEvent
}

type validatable interface {
	Validate(v *validator.Validator)
}

// decode unmarshals data into dst and validates it.
func decode(data json.RawMessage, dst validatable) error {
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &validationError{fields: describeDecodeError(err)}
	}

	v := validator.New()
	if dst.Validate(v); !v.Valid() {
		return &validationError{fields: v.Errors}
	}
	return nil
}

func describeDecodeError(err error) map[string]string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return map[string]string{typeErr.Field: "has the wrong type"}
	}
	return map[string]string{"data": "must be a JSON object"}
}

// publicMessage turns an error into the text the client sees. Internal
// details never leave the server.
func publicMessage(err error) (string, any) {
	var verr *validationError
	if errors.As(err, &verr) {
		return "invalid event payload", verr.fields
	}

	for _, known := range []error{
		types.ErrRateLimited,
		types.ErrMalformedEvent,
		types.ErrPolicyViolation,
		types.ErrTerminalState,
		types.ErrInvalidTransition,
		types.ErrStatusConflict,
		types.ErrScheduleNotFound,
		types.ErrInvalidRoom,
		types.ErrCollaboratorFailure,
	} {
		if errors.Is(err, known) {
			return known.Error(), nil
		}
	}
	return "internal error", nil
}

func errorResponse(ctx context.Context, h SessionHub, s *hub.Session, err error) {
	msg, details := publicMessage(err)
	h.Send(ctx, s, types.EventError, models.MessagePayload{Message: msg, Details: details})
}

func warningResponse(ctx context.Context, h SessionHub, s *hub.Session, err error) {
	msg, details := publicMessage(err)
	h.Send(ctx, s, types.EventWarning, models.MessagePayload{Message: msg, Details: details})
}
