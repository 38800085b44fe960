package sensor

import (
	"time"

	"github.com/okian/bodytrack/pkg/logger"
)

// SyntheticOption configures a Synthetic source.
type SyntheticOption func(*Synthetic)

// WithRate sets frames per second.
func WithRate(hz float64) SyntheticOption {
	return func(s *Synthetic) {
		if hz > 0 {
			s.rate = hz
		}
	}
}

// WithBodies sets how many slots are tracked.
func WithBodies(n int) SyntheticOption {
	return func(s *Synthetic) {
		if n >= 0 {
			s.bodies = n
		}
	}
}

// WithDropout makes slot 0 vanish for the last `gone` of every `every`.
func WithDropout(every, gone time.Duration) SyntheticOption {
	return func(s *Synthetic) {
		s.dropoutEvery = every
		s.dropoutFor = gone
	}
}

// WithSyntheticLogger sets a custom logger.
func WithSyntheticLogger(l logger.Logger) SyntheticOption {
	return func(s *Synthetic) {
		if l != nil {
			s.logger = l
		}
	}
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithBridgeClock stamps frames that arrive without a timestamp.
func WithBridgeClock(now func() time.Time) BridgeOption {
	return func(b *Bridge) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBridgeLogger sets a custom logger.
func WithBridgeLogger(l logger.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}
