// Package display presents rendered scenes: it owns the render thread and
// streams every presented scene to websocket subscribers.
package display

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/okian/bodytrack/internal/domain/pacing"
)

type call struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan error
}

// Thread runs functions one at a time on a single locked OS thread.
type Thread struct {
	calls     chan call
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewThread starts the render thread.
func NewThread() *Thread {
	t := &Thread{
		calls: make(chan call),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go t.loop()
	return t
}

func (t *Thread) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)

	for {
		select {
		case c := <-t.calls:
			c.result <- run(c)
		case <-t.quit:
			return
		}
	}
}

func run(c call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRenderPanic, r)
		}
	}()
	return c.fn(c.ctx)
}

// Invoke runs fn on the render thread and waits for it to return.
func (t *Thread) Invoke(ctx context.Context, fn func(context.Context) error) error {
	c := call{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case <-t.quit:
		return pacing.ErrDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	case t.calls <- c:
	}
	return <-c.result
}

// Close stops the thread after any running call returns.
func (t *Thread) Close() error {
	t.closeOnce.Do(func() { close(t.quit) })
	<-t.done
	return nil
}
