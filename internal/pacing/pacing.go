// Package pacing enforces application caps and the delay between attempts.
package pacing

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Deny reasons.
const (
	ReasonDailyCap = "daily-cap"
	ReasonRunCap   = "run-cap"
)

// Config bounds the number and frequency of applications. A zero cap is unlimited.
type Config struct {
	DailyCap int           `mapstructure:"daily-cap" yaml:"daily-cap" validate:"gte=0"`
	RunCap   int           `mapstructure:"run-cap" yaml:"run-cap" validate:"gte=0"`
	DelayMin time.Duration `mapstructure:"delay-min" yaml:"delay-min" validate:"gte=0"`
	DelayMax time.Duration `mapstructure:"delay-max" yaml:"delay-max" validate:"gte=0"`
}

// Validate checks the delay range.
func (c Config) Validate() error {
	if c.DelayMax < c.DelayMin {
		return fmt.Errorf("delay max (%s) is less than delay min (%s)", c.DelayMax, c.DelayMin)
	}
	return nil
}

// Permission is the answer of Permit.
type Permission struct {
	Allowed bool
	Reason  string
}

func (p Permission) String() string {
	if p.Allowed {
		return "allow"
	}
	return "deny(" + p.Reason + ")"
}

// Controller counts permitted attempts per day and per run.
type Controller struct {
	cfg Config

	mu      sync.Mutex
	day     time.Time
	today   int
	thisRun int

	now    func() time.Time
	jitter func(n int64) int64
}

func New(cfg Config) *Controller {
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = cfg.DelayMin
	}
	c := &Controller{cfg: cfg, now: time.Now, jitter: rand.Int64N}
	c.day = startOfDay(c.now())
	return c
}

// Seed sets the attempts already made today, usually read from the ledger.
func (c *Controller) Seed(today int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()
	c.today = today
}

// StartOfDay returns the beginning of the current day in local time.
func (c *Controller) StartOfDay() time.Time {
	return startOfDay(c.now())
}

// Permit reserves one attempt or reports which cap is reached.
func (c *Controller) Permit() Permission {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()

	if c.cfg.DailyCap > 0 && c.today >= c.cfg.DailyCap {
		return Permission{Reason: ReasonDailyCap}
	}
	if c.cfg.RunCap > 0 && c.thisRun >= c.cfg.RunCap {
		return Permission{Reason: ReasonRunCap}
	}
	c.today++
	c.thisRun++
	return Permission{Allowed: true}
}

// WaitInterval returns a random delay in [DelayMin, DelayMax].
func (c *Controller) WaitInterval() time.Duration {
	spread := int64(c.cfg.DelayMax - c.cfg.DelayMin)
	if spread <= 0 {
		return c.cfg.DelayMin
	}
	return c.cfg.DelayMin + time.Duration(c.jitter(spread+1))
}

// Counts returns the attempts permitted today and in this run.
func (c *Controller) Counts() (today, thisRun int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()
	return c.today, c.thisRun
}

func (c *Controller) rollover() {
	if day := startOfDay(c.now()); !day.Equal(c.day) {
		c.day = day
		c.today = 0
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
