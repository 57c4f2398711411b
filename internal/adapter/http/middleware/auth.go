package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
)

var errBadAuthHeader = errors.New("invalid Authorization header format")

// --- base auth middleware ---

// Auth verifies the access token and injects the identity into the context.
// Requests without a token pass through anonymously; protected routes reject
// them in RequireRoles. A present but invalid token is always a 401.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, err := tokenFromRequest(r)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := h.auth.Verify(ctx, token)
		if err != nil {
			h.log.Warn(wrap.ErrorCtx(ctx, err), "failed to authenticate user", "reason", err.Error())
			errorResponse(w, http.StatusUnauthorized, types.ErrAuthRejected.Error())
			return
		}

		ctx = wrap.WithUserID(models.WithIdentity(ctx, identity), identity.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles wraps a handler and allows only users with one of the given roles.
// No roles means any authenticated user.
func (h *Middleware) RequireRoles(next http.HandlerFunc, allowedRoles ...types.UserRole) http.Handler {
	allowed := make(map[types.UserRole]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := models.IdentityFromContext(r.Context())
		if !ok {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[identity.Role]; !ok {
				errorResponse(w, http.StatusForbidden, "forbidden: insufficient role")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// tokenFromRequest reads a bearer token from the Authorization header, or from
// the token query parameter for websocket clients that cannot set headers.
func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return extractBearerToken(header)
	}
	return strings.TrimSpace(r.URL.Query().Get("token")), nil
}

// --- header parser ---
func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errBadAuthHeader
	}
	return strings.TrimSpace(parts[1]), nil
}
