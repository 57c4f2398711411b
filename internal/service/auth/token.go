package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
)

// AccessToken is the only token type accepted for live connections.
const AccessToken = "access"

// TokenVerifier validates pre-issued HS256 access tokens. It never issues
// tokens and never falls back to a default identity.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Verify parses the token and extracts the identity claims. Every failure
// wraps types.ErrAuthRejected.
func (v *TokenVerifier) Verify(ctx context.Context, token string) (models.Identity, error) {
	ctx = wrap.WithAction(ctx, "verify_token")

	identity, err := v.verify(token)
	if err != nil {
		return models.Identity{}, wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrAuthRejected, err))
	}
	return identity, nil
}

func (v *TokenVerifier) verify(token string) (models.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Identity{}, ErrEmptyToken
	}
	if len(v.secret) == 0 {
		return models.Identity{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, jwt.MapClaims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, ErrExpToken
		}
		return models.Identity{}, ErrInvalidToken
	}
	if !parsed.Valid {
		return models.Identity{}, ErrInvalidToken
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return models.Identity{}, ErrInvalidClaims
	}

	if typ, ok := mc["typ"]; ok && typ != AccessToken {
		return models.Identity{}, ErrWrongTokenType
	}

	userID, err := parseUserID(mc["user_id"])
	if err != nil {
		return models.Identity{}, err
	}

	roleStr, _ := mc["role"].(string)
	role := types.UserRole(roleStr)
	if !role.IsValid() {
		return models.Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalidClaims, roleStr)
	}

	name, _ := mc["name"].(string)

	return models.Identity{
		UserID: userID,
		Role:   role,
		Name:   name,
	}, nil
}

// parseUserID accepts a positive integer encoded as a JSON number or a decimal string.
func parseUserID(raw any) (int64, error) {
	switch v := raw.(type) {
	case float64:
		if v <= 0 || v != math.Trunc(v) || v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: bad user_id", ErrInvalidClaims)
		}
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("%w: bad user_id", ErrInvalidClaims)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("%w: missing user_id", ErrInvalidClaims)
	}
}

// NewAccessClaims builds the claim set the verifier accepts. Token issuance
// lives elsewhere; this is used by tooling and tests.
func NewAccessClaims(identity models.Identity, issuedAt time.Time, ttl time.Duration) jwt.MapClaims {
	return jwt.MapClaims{
		"typ":     AccessToken,
		"user_id": identity.UserID,
		"role":    identity.Role.String(),
		"name":    identity.Name,
		"iat":     issuedAt.Unix(),
		"exp":     issuedAt.Add(ttl).Unix(),
	}
}

// Sign signs claims with the verifier's secret using HS256.
func (v *TokenVerifier) Sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
