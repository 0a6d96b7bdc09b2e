package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN        string `env:"DATABASE_DSN,required=true"`
	RedisURL           string `env:"REDIS_URL,required=true"`
	WebhookSiteURL     string `env:"WEBHOOK_SITE_URL"`
	APIPort            int    `env:"API_PORT,default=8080"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
	WorkerConcurrency  int    `env:"WORKER_CONCURRENCY,default=4"`
	WorkerPollMs       int    `env:"WORKER_POLL_INTERVAL_MS,default=1000"`
	SchedulerMs        int    `env:"SCHEDULER_INTERVAL_MS,default=30000"`
	MaxAttempts        int    `env:"MAX_ATTEMPTS,default=5"`
	BaseBackoffSeconds int    `env:"BASE_BACKOFF_SECONDS,default=30"`
	MaxBackoffSeconds  int    `env:"MAX_BACKOFF_SECONDS,default=3600"`
	RateLimitPerSec    int    `env:"RATE_LIMIT_PER_SEC,default=100"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) WorkerPollInterval() time.Duration {
	return time.Duration(c.WorkerPollMs) * time.Millisecond
}

func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.SchedulerMs) * time.Millisecond
}

func (c *Config) BaseBackoff() time.Duration {
	return time.Duration(c.BaseBackoffSeconds) * time.Second
}

func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffSeconds) * time.Second
}
