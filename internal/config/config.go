package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	DB       DBConfig
	Cache    CacheConfig
	Async    AsyncConfig
	RabbitMQ RabbitMQConfig
	Seed     SeedConfig
}

type ServerConfig struct {
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// StoreConfig selects the store backend: "postgres" or "memory".
type StoreConfig struct {
	Driver string `env:"STORE_DRIVER" envDefault:"postgres"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"commerce"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// CacheConfig selects the query cache backend: "lru" or "redis".
type CacheConfig struct {
	Driver        string        `env:"CACHE_DRIVER" envDefault:"lru"`
	Capacity      int           `env:"CACHE_CAPACITY" envDefault:"512"`
	TTL           time.Duration `env:"CACHE_TTL" envDefault:"60s"`
	RedisAddr     string        `env:"CACHE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"CACHE_REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"CACHE_REDIS_DB" envDefault:"0"`
}

// AsyncConfig sizes the shared bulk executor. Workers of zero means one per
// available CPU.
type AsyncConfig struct {
	Workers      int           `env:"ASYNC_WORKERS" envDefault:"0"`
	QueueSize    int           `env:"ASYNC_QUEUE_SIZE" envDefault:"16"`
	Policy       string        `env:"ASYNC_POLICY" envDefault:"reject"` // reject | block
	AwaitTimeout time.Duration `env:"ASYNC_AWAIT_TIMEOUT" envDefault:"30s"`
}

// RabbitMQConfig enables order event publication when URL is set.
type RabbitMQConfig struct {
	URL string `env:"RABBITMQ_URL" envDefault:""`
}

type SeedConfig struct {
	Enabled bool `env:"SEED_ON_START" envDefault:"true"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
