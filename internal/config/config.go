// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env  string `envconfig:"APP_ENV" default:"dev"`
	Port string `envconfig:"APP_PORT" default:"8080"`

	// StoreDriver selects the durable store: "mysql" or "memory".
	StoreDriver string `envconfig:"STORE_DRIVER" default:"mysql"`
	DBUser      string `envconfig:"DB_USER" default:"root"`
	DBPass      string `envconfig:"DB_PASS"`
	DBHost      string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBPort      string `envconfig:"DB_PORT" default:"3306"`
	DBName      string `envconfig:"DB_NAME" default:"hotel"`
	DBMigrate   bool   `envconfig:"DB_MIGRATE" default:"true"`

	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`
	AccessTTLMin int    `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"60"`

	SettleTimeout time.Duration `envconfig:"SETTLE_TIMEOUT" default:"10s"`

	RabbitURL       string `envconfig:"RABBITMQ_URL"`
	EventsExchange  string `envconfig:"EVENTS_EXCHANGE" default:"hotel.events"`
	NotifyQueue     string `envconfig:"NOTIFY_QUEUE" default:"hotel.notifications"`
	LogDir          string `envconfig:"LOG_DIR" default:"logs"`
	DispatchBuffer  int    `envconfig:"DISPATCH_BUFFER" default:"256"`
	DispatchWorkers int    `envconfig:"DISPATCH_WORKERS" default:"2"`

	RetryConfig
	OTelConfig
}

// RetryConfig bounds the retry of deadlocked or lock-timed-out transactions.
type RetryConfig struct {
	MaxRetries int           `envconfig:"RETRY_MAX" default:"3"`
	Initial    time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"20ms"`
	MaxDelay   time.Duration `envconfig:"RETRY_MAX_DELAY" default:"500ms"`
	Jitter     float64       `envconfig:"RETRY_JITTER" default:"0.1"`
}

type OTelConfig struct {
	Enabled     bool   `envconfig:"OTEL_ENABLED" default:"false"`
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"hotel-reservation"`
}

// Load reads the environment into a Config. Missing required variables and
// unparsable values are reported as errors.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	switch cfg.StoreDriver {
	case "mysql", "memory":
	default:
		return Config{}, fmt.Errorf("load config: STORE_DRIVER must be mysql or memory, got %q", cfg.StoreDriver)
	}
	if cfg.DispatchBuffer < 1 {
		cfg.DispatchBuffer = 1
	}
	if cfg.DispatchWorkers < 1 {
		cfg.DispatchWorkers = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return cfg, nil
}

const (
	minSettleLockTTL = 30 * time.Second
	settleLockMargin = 10 * time.Second
)

// SettleLockTTL is the expiry of the distributed settle lock. It outlives
// SETTLE_TIMEOUT so the lock cannot lapse while a settlement is running.
func (c Config) SettleLockTTL() time.Duration {
	ttl := c.SettleTimeout + settleLockMargin
	if ttl < minSettleLockTTL {
		return minSettleLockTTL
	}
	return ttl
}
