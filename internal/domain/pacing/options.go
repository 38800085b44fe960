package pacing

import (
	"time"

	"github.com/okian/bodytrack/pkg/logger"
)

// Option configures a Controller.
type Option func(*Controller)

// WithRates sets the frame rate bounds; the loop starts at max.
func WithRates(minRate, maxRate float64) Option {
	return func(c *Controller) {
		c.minRate = minRate
		c.maxRate = maxRate
	}
}

// WithTimerResolution sets the shortest wait worth sleeping for.
func WithTimerResolution(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.resolution = d
		}
	}
}

// WithAdjustEvery sets how many ticks pass between rate checks.
func WithAdjustEvery(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.adjustEvery = uint64(n)
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(clk Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithDispatcher sets where render runs.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Controller) {
		if d != nil {
			c.dispatcher = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}
