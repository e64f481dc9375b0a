package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// DATABASE_DSN points at a disposable Postgres, the suite migrates it
	DatabaseDSN string `envconfig:"DATABASE_DSN"`
	RedisAddr   string `envconfig:"REDIS_ADDR"`
	// E2E_REDIS_PREFIX isolates the pub/sub channels of concurrent runs
	RedisPrefix string `envconfig:"E2E_REDIS_PREFIX" default:"campus-chat-e2e"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
