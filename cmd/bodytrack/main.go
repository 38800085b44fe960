// Command bodytrack runs the skeletal tracking scene: it ingests sensor
// frames, renders bodies and selection targets at a paced framerate, and
// streams every frame to websocket display clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/bodytrack/internal/adapters/display"
	"github.com/okian/bodytrack/internal/adapters/http/api"
	"github.com/okian/bodytrack/internal/adapters/sensor"
	app "github.com/okian/bodytrack/internal/app"
	"github.com/okian/bodytrack/internal/config"
	"github.com/okian/bodytrack/internal/domain/geom"
	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// HTTP server timeout constants. No write timeout: /ws streams indefinitely.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	syntheticDropoutEvery     = 10 * time.Second
	syntheticDropoutFor       = 700 * time.Millisecond
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := start(); err != nil {
		_, _ = os.Stderr.WriteString("bodytrack: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func start() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	return run(ctx, cfg, log)
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	var svc *app.Service
	hub := display.NewHub(
		display.WithSize(cfg.PlayfieldWidth, cfg.PlayfieldHeight),
		display.WithOnResize(func(ctx context.Context, w, h float64) { svc.Resize(ctx, w, h) }),
		display.WithLogger(log.Named("display")),
	)
	defer func() { _ = hub.Close() }()

	source, bridge := buildSource(cfg, log)
	svc = app.New(serviceOptions(cfg, log, hub, source)...)

	// A missing sensor leaves the scene running with a notice.
	if err := svc.Start(ctx); err != nil {
		if !errors.Is(err, skeleton.ErrSensorUnavailable) {
			return err
		}
		log.Warn(ctx, "running without a sensor", logger.Error(err))
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc, hub)

	mux := http.NewServeMux()
	var sensorHandler http.Handler
	if bridge != nil {
		sensorHandler = bridge
	}
	api.NewServer(svc, hub, sensorHandler).Register(ctx, mux)

	srv := newHTTPServer(cfg.Addr, mux)
	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return err
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// buildSource picks the skeleton source. The bridge is also returned so
// its endpoint can be mounted.
func buildSource(cfg *config.Config, log logger.Logger) (skeleton.Source, *sensor.Bridge) {
	switch cfg.Sensor {
	case config.SensorSynthetic:
		return sensor.NewSynthetic(
			sensor.WithRate(cfg.SensorRateHz),
			sensor.WithBodies(cfg.SyntheticBodies),
			sensor.WithDropout(syntheticDropoutEvery, syntheticDropoutFor),
			sensor.WithSyntheticLogger(log.Named("sensor")),
		), nil
	case config.SensorBridge:
		b := sensor.NewBridge(sensor.WithBridgeLogger(log.Named("sensor")))
		return b, b
	default:
		return sensor.Unavailable{}, nil
	}
}

func serviceOptions(cfg *config.Config, log logger.Logger, hub *display.Hub, source skeleton.Source) []app.Option {
	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithSource(source),
		app.WithSink(hub),
		app.WithPlayfield(cfg.PlayfieldWidth, cfg.PlayfieldHeight),
		app.WithFramerate(cfg.MinFramerate, cfg.MaxFramerate),
		app.WithTimerResolution(cfg.TimerResolution()),
		app.WithQueueSize(cfg.QueueSize),
		app.WithStaleAfter(cfg.StaleAfter()),
		app.WithMaxSampleGap(cfg.MaxSampleGap()),
	}
	if len(cfg.Selections) > 0 {
		targets := make([]app.Target, 0, len(cfg.Selections))
		for _, s := range cfg.Selections {
			targets = append(targets, app.Target{Name: s.Name, Size: s.Size, Center: geom.Pt(s.X, s.Y)})
		}
		opts = append(opts, app.WithTargets(targets...))
	}
	return opts
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service, hub *display.Hub) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc, hub)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges that only change between ticks.
func updateServiceMetrics(svc *app.Service, hub *display.Hub) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	metrics.UpdateRenderClients(hub.ClientCount())
}
