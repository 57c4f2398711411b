package middleware

import (
	"context"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
)

type (
	TokenVerifier interface {
		Verify(ctx context.Context, token string) (models.Identity, error)
	}

	Middleware struct {
		auth TokenVerifier
		log  logger.Logger
	}
)

func NewMiddleware(auth TokenVerifier, log logger.Logger) *Middleware {
	return &Middleware{
		auth: auth,
		log:  log,
	}
}
