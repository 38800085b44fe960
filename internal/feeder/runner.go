package feeder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/okian/bodytrack/internal/adapters/sensor"
	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/pkg/logger"
)

// Run checks the service is up, then streams frames until the configured
// duration ends or ctx is cancelled. Cancellation is a normal end.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	log := logger.Named("feeder")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting sensor feed",
		logger.String("baseURL", cfg.BaseURL),
		logger.Float64("rate", cfg.Rate),
		logger.Int("bodies", cfg.Bodies),
		logger.Duration("duration", cfg.Duration),
	)

	if err := checkServiceHealth(ctx, cfg); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	endpoint, err := SensorURL(cfg.BaseURL)
	if err != nil {
		return stats, err
	}
	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	pub, err := sensor.Dial(dialCtx, endpoint)
	cancel()
	if err != nil {
		return stats, err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn(context.Background(), "closing publisher", logger.Error(err))
		}
	}()

	var record *json.Encoder
	if cfg.OutputFile != "" {
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, logFilePermission)
		if err != nil {
			return stats, fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		record = json.NewEncoder(f)
	}

	runCtx := ctx
	if cfg.Duration > 0 {
		var cancelRun context.CancelFunc
		runCtx, cancelRun = context.WithTimeout(ctx, cfg.Duration)
		defer cancelRun()
	}

	err = feed(runCtx, cfg, pub, record, stats, log)
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return stats, nil
	}
	return stats, err
}

type publisher interface {
	Publish(ctx context.Context, f skeleton.Frame) error
}

func feed(ctx context.Context, cfg *Config, pub publisher, record *json.Encoder, stats *Stats, log logger.Logger) error {
	opts := []sensor.SyntheticOption{sensor.WithRate(cfg.Rate), sensor.WithBodies(cfg.Bodies)}
	if cfg.Dropout > 0 {
		opts = append(opts, sensor.WithDropout(cfg.Dropout, min(dropoutLength, cfg.Dropout/2)))
	}
	gen := sensor.NewSynthetic(opts...)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / cfg.Rate))
	defer ticker.Stop()

	start := time.Now()
	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			// A tick racing the end of the run is not published.
			if err := ctx.Err(); err != nil {
				return err
			}
			seq++
			frame := gen.Frame(seq, now, now.Sub(start))
			stats.FramesGenerated++
			if err := publish(ctx, cfg.Timeout, pub, frame); err != nil {
				if ctx.Err() != nil && errors.Is(err, os.ErrDeadlineExceeded) {
					return ctx.Err()
				}
				stats.FramesFailed++
				return err
			}
			stats.FramesPublished++
			if record != nil {
				_ = record.Encode(frame)
			}
			log.Debug(ctx, "frame published", logger.Uint64("seq", seq))
		}
	}
}

// publish writes one frame under its own timeout. The write is detached
// from the run deadline so the last frame of a run is not cut short.
func publish(ctx context.Context, timeout time.Duration, pub publisher, f skeleton.Frame) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return pub.Publish(wctx, f)
}

// SensorURL derives the websocket endpoint from the service base URL.
func SensorURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: base url: %w", ErrInvalidConfig, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidConfig, u.Scheme)
	}
	u.Path = "/sensor"
	return u.String(), nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// The service answers health checks with Prometheus metrics.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

func validate(cfg *Config) error {
	switch {
	case cfg == nil:
		return fmt.Errorf("%w: nil", ErrInvalidConfig)
	case cfg.Rate <= 0:
		return fmt.Errorf("%w: rate must be positive", ErrInvalidConfig)
	case cfg.Bodies < 0 || cfg.Bodies > sensor.SlotCount:
		return fmt.Errorf("%w: bodies must be within 0..%d", ErrInvalidConfig, sensor.SlotCount)
	case cfg.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "feed finished",
		logger.Int("generated", stats.FramesGenerated),
		logger.Int("published", stats.FramesPublished),
		logger.Int("failed", stats.FramesFailed),
		logger.Duration("duration", stats.Duration),
	)
}
