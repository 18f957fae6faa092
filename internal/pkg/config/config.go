package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Gateway  GatewayConfig
	Realtime RealtimeConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

// GatewayConfig configures the reference gateway server.
type GatewayConfig struct {
	Port      string `env:"PORT, default=8080"`
	JWTSecret string `env:"JWT_SECRET"`
}

// RealtimeConfig configures the presence client daemon.
type RealtimeConfig struct {
	// URL is the WebSocket endpoint of the backend, e.g. ws://host:8080/ws.
	URL string `env:"WS_URL, default=ws://localhost:8080/ws"`

	// TokenPath is the file the session JWT is read from before each dial.
	TokenPath string `env:"TOKEN_PATH, default=/var/run/cmo/session.jwt"`

	MaxReconnectAttempts int           `env:"WS_MAX_RECONNECT_ATTEMPTS, default=5"`
	ReconnectBaseDelay   time.Duration `env:"WS_RECONNECT_BASE_DELAY,   default=1s"`
	ReconnectMaxDelay    time.Duration `env:"WS_RECONNECT_MAX_DELAY,    default=30s"`
	DedupWindow          time.Duration `env:"WS_DEDUP_WINDOW,           default=5s"`

	// StatusPort serves /metrics and /status for the daemon.
	StatusPort string `env:"STATUS_PORT, default=9090"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=cmo_realtime"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
