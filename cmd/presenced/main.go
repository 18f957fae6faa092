// Command presenced runs the headless realtime presence client: it keeps an
// authenticated WebSocket to the CMO backend, tracks who is online, and
// archives every domain notification it receives. A small status server
// exposes the current state and Prometheus metrics.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
	"github.com/cmo-ops/realtime-system/internal/core/service"
	mongodb "github.com/cmo-ops/realtime-system/internal/infrastructure/db/mongo"
	redisdb "github.com/cmo-ops/realtime-system/internal/infrastructure/db/redis"
	"github.com/cmo-ops/realtime-system/internal/infrastructure/queue"
	"github.com/cmo-ops/realtime-system/internal/infrastructure/session"
	"github.com/cmo-ops/realtime-system/internal/pkg/config"
	"github.com/cmo-ops/realtime-system/internal/realtime"
	"github.com/cmo-ops/realtime-system/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})
	log.Info().Str("url", cfg.Realtime.URL).Msg("presenced starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	rdb, err := redisdb.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		_ = rdb.Close()
	}()

	notifService := service.NewNotificationService(
		mongodb.NewNotificationRepository(db),
		redisdb.NewNotificationHistory(rdb),
		logger.Component("notifications"),
	)
	dispatcher := queue.NewDispatcher(0, notifService, logger.Component("dispatcher"))
	dispatcher.Start(ctx)

	tokens := session.NewFileStore(cfg.Realtime.TokenPath)
	client := realtime.New(realtime.Config{
		URL:                  cfg.Realtime.URL,
		MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
		ReconnectBaseDelay:   cfg.Realtime.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.Realtime.ReconnectMaxDelay,
		DedupWindow:          cfg.Realtime.DedupWindow,
	}, tokens, log)
	defer client.Close()

	client.OnStateChange(func(old, next realtime.ConnectionState) {
		log.Info().
			Str("from", old.String()).
			Str("to", next.String()).
			Msg("connection state changed")
	})

	client.Subscribe(domain.KindDomainNotification, func(ev domain.InboundEvent) {
		dispatcher.Enqueue(domain.NewNotification(ev.NotificationKind, ev.Message, ev.Payload))
	})
	client.Subscribe(domain.KindAuthResult, func(ev domain.InboundEvent) {
		if ev.AuthOK {
			log.Info().Str("message", ev.Message).Msg("authenticated")
			return
		}
		log.Warn().Str("message", ev.Message).Msg("authentication failed")
	})
	client.Subscribe(domain.KindUserConnected, func(ev domain.InboundEvent) {
		log.Info().Int("user_id", ev.User.ID).Str("nombre", ev.User.Nombre).Msg("user connected")
	})
	client.Subscribe(domain.KindUserDisconnected, func(ev domain.InboundEvent) {
		log.Info().Int("user_id", ev.UserID).Msg("user disconnected")
	})

	statusSrv := newStatusServer(client)
	go func() {
		log.Info().Str("port", cfg.Realtime.StatusPort).Msg("status server listening")
		if err := statusSrv.Start(":" + cfg.Realtime.StatusPort); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status server stopped")
		}
	}()

	client.Connect()

	<-ctx.Done()
	log.Info().Msg("presenced shutting down")

	client.Disconnect()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := statusSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("status server shutdown failed")
	}
}

// newStatusServer exposes the daemon's own state: connection status, the
// current presence snapshot, and Prometheus metrics.
func newStatusServer(client *realtime.Client) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.GET("/status", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"state":    client.State().String(),
			"presence": client.Presence(),
		})
	})
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
