// Package queue hands sensor frames from the sensor goroutine to the
// ingest worker.
//
// Enqueue never blocks: the sensor must not stall on a slow consumer, so a
// full queue drops the frame and counts it.
package queue

import (
	"context"
	"sync"

	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/pkg/metrics"
)

// DefaultCapacity holds a few seconds of frames at sensor rate.
const DefaultCapacity = 64

// Drop reasons reported to metrics.
const (
	dropClosed    = "closed"
	dropFull      = "queue_full"
	dropCancelled = "context_cancelled"
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame. It returns false when the frame was dropped.
	Enqueue(ctx context.Context, f skeleton.Frame) bool

	// Dequeue returns the channel frames are read from, in enqueue order.
	// It is closed once the queue is closed and drained.
	Dequeue() <-chan skeleton.Frame

	// Len returns the number of queued frames.
	Len() int

	// Close stops accepting frames.
	Close() error

	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	frames   chan skeleton.Frame
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.frames = make(chan skeleton.Frame, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a frame without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f skeleton.Frame) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordFrameDropped(dropClosed)
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordFrameDropped(dropCancelled)
		return false
	}

	select {
	case q.frames <- f:
		metrics.RecordFrameReceived()
		q.updateMetrics()
		return true
	default:
		metrics.RecordFrameDropped(dropFull)
		return false
	}
}

// Dequeue returns the frame channel.
func (q *InMemoryQueue) Dequeue() <-chan skeleton.Frame {
	return q.frames
}

// Len returns the current number of queued frames.
func (q *InMemoryQueue) Len() int {
	q.updateMetrics()
	return len(q.frames)
}

func (q *InMemoryQueue) updateMetrics() {
	size := len(q.frames)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Close stops accepting frames. Queued frames remain readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.frames)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
