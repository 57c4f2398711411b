package models

import (
	"context"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
)

// Identity is the set of claims extracted from a verified access token.
type Identity struct {
	UserID int64          `json:"user_id"`
	Role   types.UserRole `json:"role"`
	Name   string         `json:"name"`
}

func (i Identity) Is(roles ...types.UserRole) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type identityCtxKey struct{}

// WithIdentity stores the authenticated identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}
