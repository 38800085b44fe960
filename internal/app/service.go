// Package service wires the sensor, the body tracker, the selection engine
// and the pacing loop into the running scene.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/bodytrack/internal/adapters/display"
	"github.com/okian/bodytrack/internal/adapters/mq/queue"
	"github.com/okian/bodytrack/internal/adapters/mq/worker"
	"github.com/okian/bodytrack/internal/adapters/sensor"
	"github.com/okian/bodytrack/internal/domain/banner"
	"github.com/okian/bodytrack/internal/domain/body"
	"github.com/okian/bodytrack/internal/domain/estimator"
	"github.com/okian/bodytrack/internal/domain/geom"
	"github.com/okian/bodytrack/internal/domain/pacing"
	"github.com/okian/bodytrack/internal/domain/render"
	"github.com/okian/bodytrack/internal/domain/selection"
	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// Defaults.
const (
	DefaultWidth     = 1280.0
	DefaultHeight    = 720.0
	DefaultBanner    = "Raise your left hand to select"
	DefaultBannerTTL = banner.DefaultTTL
	NoSensorBanner   = "No sensor"
	shutdownTimeout  = 5 * time.Second
)

const bannerAlpha uint8 = 200

// DefaultTargets is the selection set used when none is configured.
var DefaultTargets = []Target{{Name: "test", Size: 30, Center: geom.Pt(200, 450)}}

// Presence transitions.
const (
	presenceAppeared = "appeared"
	presenceVanished = "vanished"
)

// Service runs the scene.
type Service struct {
	mu sync.RWMutex

	// Core components
	bodies    *body.Manager
	selection *selection.Engine
	banners   *banner.Board
	frames    *queue.InMemoryQueue
	ingest    *worker.InMemoryWorker
	pacer     *pacing.Controller
	source    skeleton.Source
	sink      render.Sink
	clock     pacing.Clock

	dispatcher pacing.Dispatcher
	thread     *display.Thread

	// Surface and presence, touched by the render tick.
	viewMu sync.RWMutex
	width  float64
	height float64
	live   int

	// Configuration
	minRate         float64
	maxRate         float64
	timerResolution time.Duration
	queueSize       int
	staleAfter      time.Duration
	maxSampleGap    time.Duration
	targets         []Target
	bannerText      string
	bannerTTL       time.Duration

	// State
	started    bool
	registered bool
	sensorOK   bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	// Logging
	logger logger.Logger
}

// New constructs a Service. Nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		source:          sensor.Unavailable{},
		sink:            render.NewRecorder(),
		clock:           pacing.SystemClock{},
		width:           DefaultWidth,
		height:          DefaultHeight,
		minRate:         pacing.DefaultMinRate,
		maxRate:         pacing.DefaultMaxRate,
		timerResolution: pacing.DefaultTimerResolution,
		queueSize:       queue.DefaultCapacity,
		staleAfter:      body.DefaultStaleAfter,
		maxSampleGap:    estimator.DefaultMaxSampleGap,
		targets:         DefaultTargets,
		bannerText:      DefaultBanner,
		bannerTTL:       DefaultBannerTTL,
		banners:         &banner.Board{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.bodies = body.NewManager(
		body.WithStaleAfter(s.staleAfter),
		body.WithEstimator(estimator.New(estimator.WithMaxSampleGap(s.maxSampleGap))),
		body.WithClock(s.clock.Now),
		body.WithPlayfield(s.width, s.height),
		body.WithLogger(s.logger.Named("bodies")),
	)
	s.selection = selection.New(s.sink, selection.WithLogger(s.logger.Named("selection")))
	return s
}

// Start launches the ingest worker, the pacing loop and the sensor source.
// When the sensor cannot start the service still runs, showing a notice
// and no bodies, and Start returns an error wrapping
// skeleton.ErrSensorUnavailable.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting scene service...")

	if !s.registered {
		for _, t := range s.targets {
			if err := s.selection.Register(t.Name, t.Size, t.Center); err != nil {
				return fmt.Errorf("%w %q: %w", ErrInvalidTarget, t.Name, err)
			}
		}
		s.registered = true
	}

	pacer, err := pacing.New(
		pacing.WithRates(s.minRate, s.maxRate),
		pacing.WithTimerResolution(s.timerResolution),
		pacing.WithClock(s.clock),
		pacing.WithDispatcher(s.renderDispatcher()),
		pacing.WithLogger(s.logger.Named("pacing")),
	)
	if err != nil {
		return fmt.Errorf("configure pacing: %w", err)
	}
	s.pacer = pacer

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.frames = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.ingest = worker.NewInMemoryWorker(s.frames, s.bodies,
		worker.WithLogger(s.logger.Named("ingest")),
		worker.WithClock(s.clock.Now),
	)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.ingest.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		if err := s.pacer.Run(runCtx, s.renderTick); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error(runCtx, "pacing loop ended", logger.Error(err))
		}
	}()

	s.started = true
	s.viewMu.Lock()
	s.live = 0
	s.viewMu.Unlock()
	frames := s.frames
	deliver := func(f skeleton.Frame) { frames.Enqueue(runCtx, f) }
	if err := s.source.Start(runCtx, deliver); err != nil {
		s.sensorOK = false
		metrics.UpdateSensorAvailable(false)
		s.banners.Show(NoSensorBanner, s.clock.Now(), 0, render.Red)
		s.logger.Warn(ctx, "sensor unavailable, running without bodies", logger.Error(err))
		return fmt.Errorf("start sensor: %w", err)
	}
	s.sensorOK = true

	s.logger.Info(ctx, "scene service started",
		logger.Int("queueSize", s.queueSize),
		logger.Float64("maxFramerate", s.maxRate),
		logger.Float64("minFramerate", s.minRate),
		logger.Int("targets", len(s.targets)),
	)
	return nil
}

// renderDispatcher returns the injected dispatcher or a render thread owned
// by the service.
func (s *Service) renderDispatcher() pacing.Dispatcher {
	if s.dispatcher != nil {
		return s.dispatcher
	}
	s.thread = display.NewThread()
	return s.thread
}

// Stop shuts the scene down: sensor first, then the pacing loop and the
// ingest worker.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping scene service...")

	if err := s.source.Close(); err != nil {
		s.logger.Warn(ctx, "closing sensor source", logger.Error(err))
	}
	s.pacer.Stop()
	_ = s.frames.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.ingest.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "ingest worker shutdown", logger.Error(err))
	}
	s.cancel()
	s.wg.Wait()

	if s.thread != nil {
		_ = s.thread.Close()
		s.thread = nil
	}

	s.started = false
	s.logger.Info(ctx, "scene service stopped")
}

// Resize rebases the playfield on a new surface size.
func (s *Service) Resize(ctx context.Context, width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	s.viewMu.Lock()
	s.width, s.height = width, height
	s.viewMu.Unlock()

	s.bodies.Resize(width, height)
	s.logger.Debug(ctx, "playfield resized",
		logger.Float64("width", width),
		logger.Float64("height", height),
	)
}

func (s *Service) screen() geom.Rect {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return geom.Rect{Width: s.width, Height: s.height}
}

// renderTick draws one frame: estimate every live body, run the hit test
// against the designated hand, draw, present, then age out stale bodies and
// report presence changes.
func (s *Service) renderTick(ctx context.Context) error {
	now := s.clock.Now()
	views := s.bodies.Snapshot(now)

	hand, ok := designatedHand(views)
	s.selection.Tick(ctx, now, hand, ok)

	s.sink.Clear()
	s.sink.Draw(s.selection.Primitives()...)
	for _, v := range views {
		s.sink.Draw(drawBody(v)...)
	}
	s.sink.Draw(s.banners.Primitives(now, s.screen())...)
	err := s.sink.Present(ctx)
	if err != nil {
		metrics.RecordRenderError("present")
		err = fmt.Errorf("present scene: %w", err)
	}

	s.bodies.Sweep(ctx, now)
	s.checkPresence(ctx, now)
	return err
}

// checkPresence runs on the render thread only.
func (s *Service) checkPresence(ctx context.Context, now time.Time) {
	live := s.bodies.Count(body.Alive)
	metrics.UpdateBodies(live, s.bodies.Count(body.Any))

	s.viewMu.Lock()
	prev := s.live
	s.live = live
	s.viewMu.Unlock()
	if live == prev {
		return
	}

	switch {
	case prev == 0:
		metrics.RecordBodyTransition(presenceAppeared)
		notice := render.White
		notice.A = bannerAlpha
		s.banners.Show(s.bannerText, now, s.bannerTTL, notice)
		s.logger.Info(ctx, "bodies appeared", logger.Int("live", live))
	case live == 0:
		metrics.RecordBodyTransition(presenceVanished)
		s.logger.Info(ctx, "all bodies gone")
	default:
		s.logger.Debug(ctx, "live bodies changed", logger.Int("from", prev), logger.Int("to", live))
	}
}

// Targets returns the selection targets and their state.
func (s *Service) Targets() []selection.Target {
	return s.selection.Targets()
}

// LiveBodies returns the number of live bodies.
func (s *Service) LiveBodies() int {
	return s.bodies.Count(body.Alive)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	screen := s.screen()
	stats := map[string]interface{}{
		"started":       s.started,
		"sensor":        s.sensorStatus(),
		"queueCapacity": s.queueSize,
		"width":         screen.Width,
		"height":        screen.Height,
		"bodiesLive":    s.bodies.Count(body.Alive),
		"bodiesTracked": s.bodies.Count(body.Any),
		"targets":       s.selection.Targets(),
	}

	if s.started {
		stats["queueLength"] = s.frames.Len()
		stats["framesApplied"] = s.ingest.Applied()
		stats["pacing"] = s.pacer.Stats()
	}
	return stats
}

func (s *Service) sensorStatus() string {
	switch {
	case !s.started:
		return "stopped"
	case s.sensorOK:
		return "ok"
	default:
		return "unavailable"
	}
}
