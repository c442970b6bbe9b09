// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries every runtime knob. Values come from the environment
// (after main has loaded .env); a few can be overridden by flags.
type Config struct {
	Host string `env:"POTLUCK_HOST" envDefault:"localhost"`
	Port int    `env:"POTLUCK_PORT" envDefault:"8080"`

	// SessionTTL is the idle window after which a session is reaped.
	SessionTTL time.Duration `env:"POTLUCK_SESSION_TTL" envDefault:"4h"`

	// ReaperInterval is how often the expired-session sweep runs.
	ReaperInterval time.Duration `env:"POTLUCK_REAPER_INTERVAL" envDefault:"30m"`

	// MetricsTick is the period between metrics reports; zero disables
	// the reporter.
	MetricsTick time.Duration `env:"POTLUCK_METRICS_TICK" envDefault:"60s"`

	Debug bool `env:"POTLUCK_DEBUG" envDefault:"false"`

	NgrokEnabled bool   `env:"NGROK_ENABLED" envDefault:"false"`
	NgrokDomain  string `env:"NGROK_DOMAIN"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
