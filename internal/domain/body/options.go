package body

import (
	"time"

	"github.com/okian/bodytrack/internal/domain/estimator"
	"github.com/okian/bodytrack/pkg/logger"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithStaleAfter sets the staleness window.
func WithStaleAfter(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.staleAfter = d
		}
	}
}

// WithEstimator sets the estimator used by Snapshot.
func WithEstimator(e *estimator.Estimator) Option {
	return func(m *Manager) {
		if e != nil {
			m.estimator = e
		}
	}
}

// WithClock replaces time.Now for update stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithPlayfield sets the initial surface size.
func WithPlayfield(width, height float64) Option {
	return func(m *Manager) {
		m.bounds.Width = width
		m.bounds.Y = height * playfieldTop
		m.bounds.Height = height * playfieldHeight
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}
