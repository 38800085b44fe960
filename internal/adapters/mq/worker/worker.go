// Package worker applies queued sensor frames to the body tracker.
//
// A single worker runs per service so frames are applied in the order the
// sensor produced them.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// Applier consumes frames.
type Applier interface {
	OnFrame(ctx context.Context, f skeleton.Frame)
}

// Queue defines how the worker receives frames.
type Queue interface {
	Dequeue() <-chan skeleton.Frame
}

// Worker processes frames until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for it to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	applier Applier
	name    string
	now     func() time.Time

	applied atomic.Uint64

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from queue into applier.
func NewInMemoryWorker(queue Queue, applier Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		applier:  applier,
		name:     "ingest",
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	frames := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case f, ok := <-frames:
			if !ok {
				w.logger.Debug(ctx, "frame queue closed")
				return
			}
			w.process(ctx, f)
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Applied returns how many frames the worker has applied.
func (w *InMemoryWorker) Applied() uint64 { return w.applied.Load() }

func (w *InMemoryWorker) process(ctx context.Context, f skeleton.Frame) {
	w.applier.OnFrame(ctx, f)
	w.applied.Add(1)
	if !f.Timestamp.IsZero() {
		lag := w.now().Sub(f.Timestamp)
		metrics.RecordFrameApplyLatency(float64(lag) / float64(time.Millisecond))
	}
}
