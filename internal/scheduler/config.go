package scheduler

import (
	"time"

	"github.com/smallbiznis/clubhouse/internal/config"
)

// Config controls the billing run cadence and fan-out.
type Config struct {
	RunInterval time.Duration
	// BillingCron is a standard 5-field cron spec evaluated in UTC. When set
	// it takes precedence over RunInterval.
	BillingCron string
	Concurrency int
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		Concurrency: 4,
		JobTimeout:  10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaults.Concurrency
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Scheduler.RunInterval,
		BillingCron: cfg.Scheduler.BillingCron,
		Concurrency: cfg.Scheduler.Concurrency,
	}.withDefaults()
}
