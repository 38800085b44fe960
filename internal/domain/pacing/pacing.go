// Package pacing drives the render loop at a target frame rate that adapts
// downwards when rendering cannot keep up.
package pacing

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// Defaults.
const (
	DefaultMaxRate         = 70.0
	DefaultMinRate         = 15.0
	DefaultTimerResolution = 2 * time.Millisecond
	DefaultAdjustEvery     = 100

	smoothing     = 0.95
	underDelivery = 0.92
)

// Clock abstracts wall time and sleeping so the loop can be driven by tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Dispatcher runs fn on the render thread and blocks until it returns.
type Dispatcher interface {
	Invoke(ctx context.Context, fn func(context.Context) error) error
}

// RenderFunc draws one frame.
type RenderFunc func(ctx context.Context) error

// Stats is a copy of the pacing state.
type Stats struct {
	TargetRate      float64   `json:"target_rate"`
	SmoothedFrameMs float64   `json:"smoothed_frame_ms"`
	AchievedRate    float64   `json:"achieved_rate"`
	Ticks           uint64    `json:"ticks"`
	Reductions      int       `json:"reductions"`
	NextDeadline    time.Time `json:"next_deadline"`
	Running         bool      `json:"running"`
}

// Controller is the pacing loop. A Controller runs once.
type Controller struct {
	mu    sync.RWMutex
	stats Stats

	minRate     float64
	maxRate     float64
	resolution  time.Duration
	adjustEvery uint64
	clock       Clock
	dispatcher  Dispatcher
	logger      logger.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a Controller starting at the maximum rate.
func New(opts ...Option) (*Controller, error) {
	c := &Controller{
		minRate:     DefaultMinRate,
		maxRate:     DefaultMaxRate,
		resolution:  DefaultTimerResolution,
		adjustEvery: DefaultAdjustEvery,
		clock:       SystemClock{},
		dispatcher:  Inline{},
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.minRate <= 0 || c.maxRate < c.minRate {
		return nil, ErrInvalidRates
	}
	if c.logger == nil {
		c.logger = logger.Named("pacing")
	}
	c.stats.TargetRate = c.maxRate
	c.stats.SmoothedFrameMs = 1000 / c.maxRate
	return c, nil
}

// Run paces render until Stop is called or ctx ends. Each iteration checks
// for a stop request, folds the elapsed frame time into the smoothed
// average, lowers the target rate every adjustEvery ticks when the achieved
// rate falls short, waits for the next deadline and invokes render exactly
// once through the dispatcher. Render errors are logged and do not end the
// loop. The target rate never rises.
func (c *Controller) Run(ctx context.Context, render RenderFunc) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stop:
			cancel()
		case <-runCtx.Done():
		}
	}()

	start := c.clock.Now()
	c.mu.Lock()
	c.stats.Running = true
	c.stats.NextDeadline = start
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.stats.Running = false
		c.mu.Unlock()
	}()

	c.logger.Info(ctx, "pacing started",
		logger.Float64("target_rate", c.maxRate),
		logger.Float64("min_rate", c.minRate),
	)

	last := start
	for {
		select {
		case <-c.stop:
			c.logger.Info(ctx, "pacing stopped")
			return nil
		default:
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		now := c.clock.Now()
		sleep := c.advance(ctx, now, now.Sub(last))
		last = now

		if sleep > 0 {
			if err := c.clock.Sleep(runCtx, sleep); err != nil {
				continue
			}
		}

		began := c.clock.Now()
		err := c.dispatcher.Invoke(runCtx, render)
		metrics.RecordTick()
		metrics.RecordRenderLatency(millis(c.clock.Now().Sub(began)))
		switch {
		case err == nil:
		case errors.Is(err, ErrDispatcherClosed):
			return err
		case errors.Is(err, context.Canceled) && runCtx.Err() != nil:
		default:
			metrics.RecordRenderError("tick")
			c.logger.Warn(ctx, "render failed", logger.Error(err))
		}
	}
}

// advance updates the pacing state for a tick at now, elapsed after the
// previous one, and returns how long to sleep before rendering.
func (c *Controller) advance(ctx context.Context, now time.Time, elapsed time.Duration) time.Duration {
	c.mu.Lock()
	s := &c.stats
	s.Ticks++
	s.SmoothedFrameMs = s.SmoothedFrameMs*smoothing + (1-smoothing)*millis(elapsed)
	if s.SmoothedFrameMs > 0 {
		s.AchievedRate = 1000 / s.SmoothedFrameMs
	}

	from := s.TargetRate
	reduced := false
	if s.Ticks%c.adjustEvery == 0 && s.AchievedRate < s.TargetRate*underDelivery {
		s.TargetRate = math.Max(c.minRate, (s.TargetRate+s.AchievedRate)/2)
		reduced = s.TargetRate < from
		if reduced {
			s.Reductions++
		}
	}

	var sleep time.Duration
	if now.After(s.NextDeadline) {
		s.NextDeadline = now
	} else if remaining := s.NextDeadline.Sub(now); remaining >= c.resolution {
		sleep = remaining.Round(time.Millisecond)
	}
	s.NextDeadline = s.NextDeadline.Add(interval(s.TargetRate))

	target, smoothed, achieved := s.TargetRate, s.SmoothedFrameMs, s.AchievedRate
	c.mu.Unlock()

	metrics.UpdatePacing(target, smoothed)
	if reduced {
		metrics.RecordFramerateReduction()
		c.logger.Info(ctx, "lowering target frame rate",
			logger.Float64("from", from),
			logger.Float64("to", target),
			logger.Float64("achieved", achieved),
		)
	}
	return sleep
}

// Stop asks the loop to exit before its next render. Safe to call more than
// once and before Run.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Stats returns a copy of the pacing state.
func (c *Controller) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func interval(rate float64) time.Duration {
	return time.Duration(float64(time.Second) / rate)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
