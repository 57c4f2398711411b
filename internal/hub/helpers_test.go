package hub

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
)

type frame struct {
	Event types.ServerEvent `json:"event"`
	Data  json.RawMessage   `json:"data"`
}

func newTestHub(queueSize int) *Hub {
	return New(Options{SendQueueSize: queueSize}, logger.New(io.Discard, "test", logger.LevelError))
}

func identity(userID int64, role types.UserRole) models.Identity {
	return models.Identity{UserID: userID, Role: role, Name: role.String()}
}

// drain returns every frame currently queued for the session.
func drain(t *testing.T, s *Session) []frame {
	t.Helper()

	var out []frame
	for {
		select {
		case raw, ok := <-s.Messages():
			if !ok {
				return out
			}
			var f frame
			require.NoError(t, json.Unmarshal(raw, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}
