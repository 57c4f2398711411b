package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Temutjin2k/schoolbus-hub/config"
	"github.com/Temutjin2k/schoolbus-hub/docs"
	"github.com/Temutjin2k/schoolbus-hub/internal/adapter/http/handler"
	"github.com/Temutjin2k/schoolbus-hub/internal/adapter/http/middleware"
	wshandler "github.com/Temutjin2k/schoolbus-hub/internal/adapter/http/ws"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
)

const (
	serverIPAddress = "%s:%s"
	swaggerInstance = docs.InstanceName
	shutdownTimeout = 5 * time.Second
)

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers // routes/handlers
	m      *middleware.Middleware

	addr string
	log  logger.Logger
}

type handlers struct {
	health       *handler.Health
	ws           *handler.WebSocket
	schedule     *handler.Schedule
	notification *handler.Notification
}

type SessionHub interface {
	handler.SessionHub
	handler.HubStats
}

// Deps are the services exposed over HTTP.
type Deps struct {
	Verifier      middleware.TokenVerifier
	Hub           SessionHub
	Dispatcher    handler.Dispatcher
	Schedules     handler.ScheduleService
	Notifications handler.NotificationService
}

func New(cfg config.Config, deps Deps, logger logger.Logger) (*API, error) {
	if deps.Verifier == nil {
		return nil, errors.New("token verifier is required")
	}
	if deps.Hub == nil || deps.Dispatcher == nil {
		return nil, errors.New("hub and dispatcher are required")
	}

	api := &API{
		mux: http.NewServeMux(),
		routes: &handlers{
			health:       handler.NewHealth(cfg.ServiceName, deps.Hub, logger),
			ws:           handler.NewWebSocket(deps.Hub, deps.Dispatcher, connOptions(cfg.WebSocket), logger),
			schedule:     handler.NewSchedule(deps.Schedules, logger),
			notification: handler.NewNotification(deps.Notifications, logger),
		},
		m:    middleware.NewMiddleware(deps.Verifier, logger),
		addr: fmt.Sprintf(serverIPAddress, cfg.Server.Host, cfg.Server.Port),
		log:  logger,
	}

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	setupRoutes(api.mux, api.routes, api.m)

	return api, nil
}

// Handler returns the fully wrapped router.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Metrics(a.m.Logging(a.m.Auth(a.mux)))))
}

func connOptions(c config.WebSocketConfig) wshandler.ConnOptions {
	return wshandler.ConnOptions{
		PingInterval:   c.PingInterval,
		PongWait:       c.PongWait,
		WriteWait:      c.WriteWait,
		MaxMessageSize: c.MaxMessageSize,
	}
}
