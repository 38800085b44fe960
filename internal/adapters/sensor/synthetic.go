package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// Synthetic defaults.
const (
	DefaultRate   = 30.0
	DefaultBodies = 1
)

// Synthetic generates waving skeletons at a fixed rate.
type Synthetic struct {
	rate         float64
	bodies       int
	dropoutEvery time.Duration
	dropoutFor   time.Duration
	logger       logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSynthetic creates a generator.
func NewSynthetic(opts ...SyntheticOption) *Synthetic {
	s := &Synthetic{rate: DefaultRate, bodies: DefaultBodies}
	for _, opt := range opts {
		opt(s)
	}
	if s.bodies > SlotCount {
		s.bodies = SlotCount
	}
	if s.logger == nil {
		s.logger = logger.Named("sensor.synthetic")
	}
	return s
}

// Start begins delivering frames on a background goroutine.
func (s *Synthetic) Start(ctx context.Context, deliver func(skeleton.Frame)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx, deliver)

	metrics.UpdateSensorAvailable(true)
	s.logger.Info(ctx, "synthetic sensor started",
		logger.Float64("rate_hz", s.rate),
		logger.Int("bodies", s.bodies),
	)
	return nil
}

func (s *Synthetic) run(ctx context.Context, deliver func(skeleton.Frame)) {
	defer close(s.done)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / s.rate))
	defer ticker.Stop()

	start := time.Now()
	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			seq++
			deliver(s.Frame(seq, now, now.Sub(start)))
		}
	}
}

// Frame builds the frame at elapsed time t. Slot 0 drops out periodically
// when dropout is configured.
func (s *Synthetic) Frame(seq uint64, at time.Time, t time.Duration) skeleton.Frame {
	f := skeleton.Frame{Seq: seq, Timestamp: at, Bodies: make([]skeleton.RawBody, SlotCount)}
	for slot := range f.Bodies {
		f.Bodies[slot] = skeleton.RawBody{Slot: slot, State: skeleton.NotTracked}
		if slot >= s.bodies || s.droppedOut(slot, t) {
			continue
		}
		f.Bodies[slot].State = skeleton.Tracked
		f.Bodies[slot].Joints = Pose(slot, s.bodies, t)
	}
	return f
}

func (s *Synthetic) droppedOut(slot int, t time.Duration) bool {
	if slot != 0 || s.dropoutEvery <= 0 || s.dropoutFor <= 0 {
		return false
	}
	return t%s.dropoutEvery >= s.dropoutEvery-s.dropoutFor
}

// Close stops the generator and waits for it.
func (s *Synthetic) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
