package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cmo-ops/realtime-system/internal/api/handler"
	"github.com/cmo-ops/realtime-system/internal/api/middleware"
	"github.com/cmo-ops/realtime-system/internal/api/ws"
	"github.com/cmo-ops/realtime-system/internal/core/domain"
	"github.com/cmo-ops/realtime-system/internal/core/ports"
	"github.com/cmo-ops/realtime-system/internal/core/service"
	mongodb "github.com/cmo-ops/realtime-system/internal/infrastructure/db/mongo"
)

// NewRouter builds and returns the Echo instance with all gateway routes
// registered: auth, the WebSocket endpoint, presence, notifications, health
// probes, and Prometheus metrics.
func NewRouter(db *mongo.Database, rdb *redis.Client, hub *ws.Hub, notifService ports.NotificationService, jwtSecret string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("cmo_gateway"))

	// --- Dependencies ---
	accountRepo := mongodb.NewAccountRepository(db)
	authService := service.NewAuthService(accountRepo, jwtSecret, 24*time.Hour)
	authHandler := handler.NewAuthHandler(authService)
	verifier := middleware.NewVerifier(jwtSecret)
	authMiddleware := middleware.Auth(verifier)

	presenceHandler := handler.NewPresenceHandler(hub)
	notifHandler := handler.NewNotificationHandler(notifService, hub)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Realtime channel ---
	e.GET("/ws", echo.WrapHandler(hub))

	// --- Presence & notifications (authenticated) ---
	authed := e.Group("", authMiddleware)
	authed.GET("/presence", presenceHandler.List)
	authed.GET("/notifications", notifHandler.Recent)
	authed.POST("/notifications",
		notifHandler.Publish,
		middleware.RBAC(domain.RoleAdmin, domain.RoleSupervisor),
	)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Metrics ---
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
