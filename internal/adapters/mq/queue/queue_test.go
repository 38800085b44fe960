package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/bodytrack/internal/domain/skeleton"
	"github.com/okian/bodytrack/pkg/metrics"
)

func frame(seq uint64) skeleton.Frame {
	return skeleton.Frame{Seq: seq, Timestamp: time.Unix(0, int64(seq))}
}

func droppedFrames(t *testing.T, reason string) float64 {
	t.Helper()
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "bodytrack_scene_sensor_frames_dropped_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "reason" && l.GetValue() == reason {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, frame(1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	f := <-q.Dequeue()
	if f.Seq != 1 {
		t.Errorf("expected frame 1, got %d", f.Seq)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_DropsWhenFull(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	before := droppedFrames(t, dropFull)

	if !q.Enqueue(ctx, frame(1)) || !q.Enqueue(ctx, frame(2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, frame(3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
	if got := droppedFrames(t, dropFull) - before; got != 1 {
		t.Errorf("expected 1 dropped frame, got %v", got)
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); i <= 100; i++ {
			for !q.Enqueue(ctx, frame(i)) {
				time.Sleep(time.Millisecond)
			}
		}
		_ = q.Close()
	}()

	var want uint64 = 1
	for f := range q.Dequeue() {
		if f.Seq != want {
			t.Fatalf("expected frame %d, got %d", want, f.Seq)
		}
		want++
	}
	wg.Wait()
	if want != 101 {
		t.Errorf("expected 100 frames, got %d", want-1)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, frame(1)) {
		t.Error("expected enqueue to fail with cancelled context")
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, frame(1)) || !q.Enqueue(ctx, frame(2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, frame(3)) {
		t.Error("expected enqueue to fail after closing")
	}

	// Queued frames drain before the channel reports closed.
	n := 0
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case _, ok := <-q.Dequeue():
			if !ok {
				if n != 2 {
					t.Errorf("expected 2 drained frames, got %d", n)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			n++
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}
