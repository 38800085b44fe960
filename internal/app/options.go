package service

import (
	"time"

	"github.com/okian/bodytrack/internal/domain/geom"
	"github.com/okian/bodytrack/internal/domain/pacing"
	"github.com/okian/bodytrack/internal/domain/render"
	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/pkg/logger"
)

// Target describes a selection target registered at construction.
type Target struct {
	Name   string
	Size   float64
	Center geom.Point
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSource sets the skeleton source.
func WithSource(src skeleton.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithSink sets where scenes are drawn.
func WithSink(sink render.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithDispatcher sets where render ticks run. By default the service owns a
// dedicated render thread.
func WithDispatcher(d pacing.Dispatcher) Option {
	return func(s *Service) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c pacing.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithPlayfield sets the initial surface size.
func WithPlayfield(width, height float64) Option {
	return func(s *Service) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// WithFramerate sets the pacing bounds.
func WithFramerate(minRate, maxRate float64) Option {
	return func(s *Service) {
		s.minRate, s.maxRate = minRate, maxRate
	}
}

// WithTimerResolution sets the shortest sleep the pacing loop takes.
func WithTimerResolution(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timerResolution = d
		}
	}
}

// WithQueueSize sets the frame queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStaleAfter sets how long a body may go unreported.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithMaxSampleGap sets the widest sample spacing used for extrapolation.
func WithMaxSampleGap(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxSampleGap = d
		}
	}
}

// WithTargets replaces the selection targets.
func WithTargets(targets ...Target) Option {
	return func(s *Service) {
		s.targets = targets
	}
}

// WithBanner sets the text shown when bodies appear after none, and how
// long it stays up.
func WithBanner(text string, ttl time.Duration) Option {
	return func(s *Service) {
		if text != "" {
			s.bannerText = text
		}
		if ttl > 0 {
			s.bannerTTL = ttl
		}
	}
}
