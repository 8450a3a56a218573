// internal/workers/notifications/notify-job-subscribers/config.go
package notifyjobsubscribers

import (
	"time"

	"job-notifier/internal/common/config"
)

type Config struct {
	// Timeout bounds a whole run when triggered from a workflow job.
	Timeout time.Duration
	// DispatchTimeout bounds the external delivery phase.
	DispatchTimeout time.Duration

	PublicSiteURL string
	FromAddress   string

	TelegramEnabled bool
	EmailEnabled    bool

	DedupEnabled bool
	DedupTTL     time.Duration

	// MaxConcurrency caps in-flight match evaluations and sends per channel.
	MaxConcurrency int
}

func LoadConfig(cfg *config.Config) *Config {
	n := cfg.Notifications
	wcfg := config.GetWorkerConfig(cfg, TaskType)

	c := &Config{
		Timeout:         config.GetDuration(wcfg.Timeout),
		DispatchTimeout: config.GetDuration(n.DispatchTimeout),
		PublicSiteURL:   n.PublicSiteURL,
		FromAddress:     n.Email.FromAddress,
		TelegramEnabled: n.TelegramEnabled(),
		EmailEnabled:    n.EmailEnabled(),
		DedupEnabled:    n.Dedup.Enabled,
		DedupTTL:        time.Duration(n.Dedup.TTL) * time.Second,
		MaxConcurrency:  wcfg.MaxJobsActive * 4,
	}
	return c.withDefaults()
}

func (c *Config) withDefaults() *Config {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = 30 * time.Second
	}
	if c.DedupTTL <= 0 {
		c.DedupTTL = 72 * time.Hour
	}
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = 16
	}
	return c
}
