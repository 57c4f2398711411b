package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Temutjin2k/schoolbus-hub/config"
	"github.com/Temutjin2k/schoolbus-hub/internal/adapter/http/server"
	wshandler "github.com/Temutjin2k/schoolbus-hub/internal/adapter/http/ws"
	repo "github.com/Temutjin2k/schoolbus-hub/internal/adapter/postgres"
	broker "github.com/Temutjin2k/schoolbus-hub/internal/adapter/rabbit"
	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
	"github.com/Temutjin2k/schoolbus-hub/internal/service/auth"
	"github.com/Temutjin2k/schoolbus-hub/internal/service/notification"
	"github.com/Temutjin2k/schoolbus-hub/internal/service/schedule"
	"github.com/Temutjin2k/schoolbus-hub/internal/service/tracking"
	"github.com/Temutjin2k/schoolbus-hub/pkg/async"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
	"github.com/Temutjin2k/schoolbus-hub/pkg/postgres"
	"github.com/Temutjin2k/schoolbus-hub/pkg/rabbit"
	"github.com/Temutjin2k/schoolbus-hub/pkg/trm"
)

// App owns every long-lived resource of the hub process.
type App struct {
	postgresDB *postgres.PostgreDB
	rabbit     *rabbit.RabbitMQ // nil when the broker is disabled
	consumer   *broker.NotificationConsumer
	pool       *async.Pool
	hub        *hub.Hub
	httpServer *server.API

	notifications *notification.Service

	cfg config.Config
	log logger.Logger
}

// NewApplication connects to the collaborators and wires the hub together.
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	if err := a.init(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	var err error

	a.postgresDB, err = postgres.New(ctx, a.cfg.Database, postgres.PoolOptions{
		MaxConns:        a.cfg.Database.MaxConns,
		MinConns:        a.cfg.Database.MinConns,
		MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: a.cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		a.log.Error(ctx, "Failed to setup database", err)
		return fmt.Errorf("postgres: %w", err)
	}

	var feed tracking.LocationFeed
	if a.cfg.RabbitMQ.Enabled {
		a.rabbit, err = rabbit.New(ctx, a.cfg.RabbitMQ.GetDSN(), a.log)
		if err != nil {
			a.log.Error(ctx, "Failed to connect to RabbitMQ", err)
			return fmt.Errorf("rabbitmq: %w", err)
		}
		feed = broker.NewLocationFeed(a.rabbit, a.cfg.RabbitMQ.LocationExchange, a.log)
		a.consumer = broker.NewNotificationConsumer(
			a.rabbit,
			a.cfg.RabbitMQ.NotificationExchange,
			a.cfg.RabbitMQ.NotificationQueue,
			a.cfg.RabbitMQ.Prefetch,
			a.log,
		)
	}

	a.pool = async.New(a.cfg.Async.Workers, a.cfg.Async.QueueSize, a.log)
	a.hub = hub.New(hubOptions(a.cfg.WebSocket), a.log)

	// Repositories
	locationRepo := repo.NewLocationRepo(a.postgresDB.Pool)
	notificationRepo := repo.NewNotificationRepo(a.postgresDB.Pool)
	scheduleRepo := repo.NewScheduleRepo(a.postgresDB.Pool)
	txManager := trm.New(a.postgresDB.Pool)

	// Services
	a.notifications = notification.New(notificationRepo, a.hub, txManager, a.log)
	schedules := schedule.New(scheduleRepo, a.notifications, a.hub, a.pool, schedule.Options{
		EnforceDriverAssignment: a.cfg.Schedule.EnforceDriverAssignment,
	}, a.log)
	locations := tracking.New(a.hub, a.pool, locationRepo, feed, scheduleRepo, tracking.Options{
		EnforceAssignment: a.cfg.Schedule.EnforceDriverAssignment,
	}, a.log)

	a.httpServer, err = server.New(a.cfg, server.Deps{
		Verifier:      auth.NewTokenVerifier(a.cfg.Auth.JWTSecret),
		Hub:           a.hub,
		Dispatcher:    wshandler.NewDispatcher(a.hub, locations, schedules, a.log),
		Schedules:     schedules,
		Notifications: a.notifications,
	}, a.log)
	if err != nil {
		a.log.Error(ctx, "Failed to setup http server", err)
		return err
	}

	return nil
}

// Run serves until SIGINT/SIGTERM, ctx cancellation or a fatal server error,
// then shuts everything down in dependency order.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.pool.Start()

	errCh := make(chan error, 1)
	a.httpServer.Run(ctx, errCh)

	g, gctx := errgroup.WithContext(ctx)
	if a.consumer != nil {
		g.Go(func() error {
			return a.consumer.Consume(gctx, a.notifications)
		})
	}

	a.log.Info(ctx, "schoolbus hub started", "service", a.cfg.ServiceName)

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		a.log.Info(wrap.WithAction(context.Background(), "shutdown"), "shutting down application", "reason", context.Cause(ctx).Error())
	}

	stop()
	shutdownCtx := context.WithoutCancel(ctx)
	a.close(shutdownCtx)

	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	a.log.Info(shutdownCtx, "schoolbus hub stopped")

	return runErr
}

// close releases resources in reverse dependency order. Fields left nil by a
// failed init are skipped.
func (a *App) close(ctx context.Context) {
	ctx = wrap.WithAction(ctx, "shutdown")

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	// hijacked websocket connections outlive server shutdown; closing the
	// sessions makes every connection write its close frame and exit
	if a.hub != nil {
		a.hub.Close(ctx)
	}

	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.log.Warn(ctx, "Failed to drain async pool", "error", err.Error())
		}
	}

	if a.rabbit != nil {
		if err := a.rabbit.Close(ctx); err != nil {
			a.log.Warn(ctx, "Failed to close RabbitMQ", "error", err.Error())
		}
	}

	if a.postgresDB != nil {
		a.postgresDB.Close()
	}
}

func hubOptions(c config.WebSocketConfig) hub.Options {
	return hub.Options{
		SendQueueSize: c.SendQueueSize,
		EventRate:     c.EventRate,
		EventBurst:    c.EventBurst,
	}
}
