// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package programmer

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the engine configuration.
type Config struct {
	// Strategy is the initial programming strategy.
	Strategy Strategy

	// PollBudget bounds data polling after a write; 0 polls forever,
	// matching the hardware contract (a present device always completes).
	PollBudget int

	// ByteSettle is the delay after each Flash byte program.
	ByteSettle time.Duration

	// EraseSettle is the delay after a chip-erase sequence.
	EraseSettle time.Duration

	// ProtectSettle is the delay after a protection toggle sequence.
	ProtectSettle time.Duration

	// Logger receives debug-level engine events (optional).
	Logger logrus.FieldLogger

	// Sleep replaces time.Sleep for the settle delays (tests). Nil uses
	// time.Sleep.
	Sleep func(time.Duration)
}

func defaultConfig() Config {
	return Config{
		Strategy:      EEPROM,
		ByteSettle:    20 * time.Microsecond,
		EraseSettle:   100 * time.Millisecond,
		ProtectSettle: 10 * time.Millisecond,
	}
}

func (c *Config) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if c.Sleep != nil {
		c.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Option is a functional option for configuring the Engine.
type Option func(*Config)

// WithStrategy sets the initial programming strategy.
func WithStrategy(s Strategy) Option {
	return func(c *Config) { c.Strategy = s }
}

// WithPollBudget bounds data polling to at most n reads per wait. n = 0
// restores the unbounded hardware behavior.
func WithPollBudget(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.PollBudget = n
		}
	}
}

// WithByteSettle sets the per-byte settle delay of the Flash strategy.
func WithByteSettle(d time.Duration) Option {
	return func(c *Config) { c.ByteSettle = d }
}

// WithEraseSettle sets the settle delay after a chip erase.
func WithEraseSettle(d time.Duration) Option {
	return func(c *Config) { c.EraseSettle = d }
}

// WithProtectSettle sets the settle delay after a protection toggle.
func WithProtectSettle(d time.Duration) Option {
	return func(c *Config) { c.ProtectSettle = d }
}

// WithLogger sets a logger for engine events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithSleep replaces the settle-delay sleep function, letting tests run the
// timing paths without waiting.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Config) { c.Sleep = sleep }
}
