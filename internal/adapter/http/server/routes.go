package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Temutjin2k/schoolbus-hub/internal/adapter/http/middleware"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	// System Health
	mux.HandleFunc("GET /health", routes.health.HealthCheck)

	setupSwaggerRoutes(mux)
	setupMetricsRoute(mux)

	setupRealtimeRoutes(mux, routes, m)
	setupScheduleRoutes(mux, routes, m)
	setupNotificationRoutes(mux, routes, m)
}

// setupRealtimeRoutes setups the websocket entry point; the token is verified before upgrade
func setupRealtimeRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("GET /ws", m.RequireRoles(routes.ws.HandleWS))
}

func setupScheduleRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /schedules/{schedule_id}/status", m.RequireRoles(routes.schedule.UpdateStatus, types.RoleAdmin, types.RoleDriver)) // Change schedule status
	mux.Handle("GET /schedules/{schedule_id}/status", m.RequireRoles(routes.schedule.GetStatus))                                        // Read schedule status
}

func setupNotificationRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /notifications", m.RequireRoles(routes.notification.Create, types.RoleAdmin)) // Send a notification
	mux.Handle("GET /notifications", m.RequireRoles(routes.notification.List))                     // Pull missed notifications
}

// setupSwaggerRoutes configures Swagger UI endpoints
func setupSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swagger/", httpSwagger.Handler(httpSwagger.InstanceName(swaggerInstance)))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
