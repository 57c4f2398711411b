package wrap

import (
	"context"
)

// Error wraps an error with the current LogCtx from the context.
// Wrapping an already wrapped error keeps the chain intact, errors.Is
// and errors.As still see the original error.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	return &errorWithLogCtx{
		err:    err,
		logCtx: fromCtx(ctx),
	}
}
