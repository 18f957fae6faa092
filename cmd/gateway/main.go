// Command gateway runs the reference CMO realtime gateway: the HTTP API for
// auth, presence, and notification history, plus the WebSocket endpoint the
// presence clients connect to.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmo-ops/realtime-system/internal/api"
	"github.com/cmo-ops/realtime-system/internal/api/middleware"
	"github.com/cmo-ops/realtime-system/internal/api/ws"
	"github.com/cmo-ops/realtime-system/internal/core/service"
	mongodb "github.com/cmo-ops/realtime-system/internal/infrastructure/db/mongo"
	redisdb "github.com/cmo-ops/realtime-system/internal/infrastructure/db/redis"
	"github.com/cmo-ops/realtime-system/internal/pkg/config"
	"github.com/cmo-ops/realtime-system/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})
	log.Info().Str("env", cfg.Env).Msg("gateway starting")

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
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("mongodb index setup failed")
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")

	rdb, err := redisdb.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		_ = rdb.Close()
	}()
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

	notifService := service.NewNotificationService(
		mongodb.NewNotificationRepository(db),
		redisdb.NewNotificationHistory(rdb),
		logger.Component("notifications"),
	)

	verifier := middleware.NewVerifier(cfg.Gateway.JWTSecret)
	hub := ws.New(verifier, log)

	e := api.NewRouter(db, rdb, hub, notifService, cfg.Gateway.JWTSecret, log)

	go func() {
		log.Info().Str("port", cfg.Gateway.Port).Msg("gateway listening")
		if err := e.Start(":" + cfg.Gateway.Port); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("gateway server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("gateway shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("gateway shutdown failed")
	}
	hub.Close()
}
