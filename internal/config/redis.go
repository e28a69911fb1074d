package config

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the Redis server used for the settlement lock and
// the rate limiter. Addr is overridden by Host and Port when both are set.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Host     string `envconfig:"REDIS_HOST"`
	Port     string `envconfig:"REDIS_PORT"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	TLS      bool   `envconfig:"REDIS_TLS" default:"false"`
	Disabled bool   `envconfig:"REDIS_DISABLED" default:"false"`
}

func LoadRedisConfig() (RedisConfig, error) {
	var c RedisConfig
	if err := envconfig.Process("", &c); err != nil {
		return RedisConfig{}, err
	}
	if c.Host != "" && c.Port != "" {
		c.Addr = c.Host + ":" + c.Port
	}
	return c, nil
}

// NewRedisClient connects and pings the server. It returns nil when Redis
// is disabled or unreachable; callers fall back to in-process locking and
// skip rate limiting.
func NewRedisClient(c RedisConfig) *redis.Client {
	if c.Disabled {
		return nil
	}
	var tlsConf *tls.Config
	if c.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      c.Addr,
		Password:  c.Password,
		DB:        c.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("config: redis at %s unreachable: %v", c.Addr, err)
		_ = client.Close()
		return nil
	}
	return client
}
