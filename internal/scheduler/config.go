package scheduler

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fleetwatch/internal/config"
)

// Config controls the sweep cadence and the single-flight lease.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
	LockTTL  time.Duration
	LockKey  string
	// OrgID restricts scheduled sweeps to one organization; zero sweeps all of them.
	OrgID snowflake.ID
}

func DefaultConfig() Config {
	return Config{
		Interval: time.Minute,
		Timeout:  5 * time.Minute,
		LockTTL:  10 * time.Minute,
		LockKey:  "fleetwatch:sweep",
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	// The lease must outlive the sweep it guards.
	if c.LockTTL < c.Timeout {
		c.LockTTL = c.Timeout
	}
	if c.LockKey == "" {
		c.LockKey = defaults.LockKey
	}
	if c.OrgID < 0 {
		c.OrgID = 0
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Interval: cfg.Sweep.Interval,
		Timeout:  cfg.Sweep.Timeout,
		LockTTL:  cfg.Sweep.LockTTL,
		LockKey:  cfg.Sweep.LockKey,
		OrgID:    snowflake.ID(cfg.Sweep.OrgID),
	}.withDefaults()
}
