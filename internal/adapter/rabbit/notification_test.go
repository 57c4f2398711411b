package rabbit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
)

func TestDecodeEnvelope(t *testing.T) {
	t.Run("personal", func(t *testing.T) {
		env, err := decodeEnvelope([]byte(`{"notification_id":9,"recipient_id":5,"title":"Bus","message":"Left","type":"alert"}`))
		require.NoError(t, err)
		require.NotNil(t, env.RecipientID)
		assert.Equal(t, int64(5), *env.RecipientID)
		assert.Equal(t, int64(9), env.ID)
		assert.Equal(t, types.NotificationAlert, env.Type)
	})

	t.Run("role with default type", func(t *testing.T) {
		env, err := decodeEnvelope([]byte(`{"notification_id":1,"target_role":"parent","title":"Snow day","message":"No pickup"}`))
		require.NoError(t, err)
		require.NotNil(t, env.TargetRole)
		assert.Equal(t, types.RoleParent, *env.TargetRole)
		assert.Equal(t, types.NotificationInfo, env.Type)
	})

	cases := map[string]string{
		"not json":     `{`,
		"no target":    `{"title":"a","message":"b"}`,
		"unknown role": `{"target_role":"janitor","title":"a","message":"b"}`,
		"no title":     `{"recipient_id":1,"message":"b"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeEnvelope([]byte(body))
			assert.ErrorIs(t, err, types.ErrMalformedEvent)
		})
	}
}

func TestRetry(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = 0
	err = retry(ctx, 5, time.Second, func() error {
		calls++
		return errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
