// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME,default=printshop"`
	Env         string `env:"ENV,default=dev"`
	HTTPAddr    string `env:"HTTP_ADDR,default=:8080"`

	// PostgresDSN empty means in-memory stores; useful for local runs and tests.
	PostgresDSN   string `env:"POSTGRES_DSN"`
	MigrationsDir string `env:"MIGRATIONS_DIR,default=internal/infrastructure/postgres/migrations"`

	// RedisAddr empty means the cart lives in process memory.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	// TaxTablePath points at a YAML state->rate table; empty falls back to the
	// built-in default rate.
	TaxTablePath   string  `env:"TAX_TABLE_PATH"`
	DefaultTaxRate float64 `env:"DEFAULT_TAX_RATE,default=0.0625"`

	CartTTL         time.Duration `env:"CART_TTL,default=336h"`
	RetentionBuffer time.Duration `env:"RETENTION_BUFFER,default=168h"`
	CleanupSchedule string        `env:"CLEANUP_SCHEDULE,default=@every 1h"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads .env when present, then decodes the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode environment: %w", err)
	}
	return cfg, nil
}
