package handler

import (
	"net/http"

	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
)

type HubStats interface {
	SessionCount() int
	RoomCount() int
}

type Health struct {
	serviceName string
	stats       HubStats
	log         logger.Logger
}

func NewHealth(serviceName string, stats HubStats, log logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		stats:       stats,
		log:         log,
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Returns the health status of the hub with live session and room counts
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /health [get]
func (a *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	response := envelope{
		"status": "available",
		"system_info": map[string]string{
			"service-name": a.serviceName,
		},
		"hub": map[string]int{
			"sessions": a.stats.SessionCount(),
			"rooms":    a.stats.RoomCount(),
		},
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		a.log.Error(ctx, "healthcheck", err)
		return
	}
}
