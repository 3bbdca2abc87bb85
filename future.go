package spanrunner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/Swind/go-span-runner/core"
)

const (
	futureNew int32 = iota
	futureRunning
	futureDone
	futureCancelled
)

// PanicError completes the Future of a task that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// futureTask runs a Callable at most once and publishes its outcome.
type futureTask struct {
	fn     core.Callable
	state  atomic.Int32
	done   chan struct{}
	result any
	err    error
}

var _ core.Future = (*futureTask)(nil)

func newFutureTask(fn core.Callable) *futureTask {
	return &futureTask{fn: fn, done: make(chan struct{})}
}

// run is the Task queued on the pool.
func (f *futureTask) run(ctx context.Context) {
	if !f.state.CompareAndSwap(futureNew, futureRunning) {
		return
	}

	var (
		result any
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				result, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		result, err = f.fn(ctx)
	}()

	f.result, f.err = result, err
	f.state.Store(futureDone)
	close(f.done)
}

// fail completes a future that was never queued.
func (f *futureTask) fail(err error) {
	if f.state.CompareAndSwap(futureNew, futureDone) {
		f.err = err
		close(f.done)
	}
}

func (f *futureTask) Get(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *futureTask) Done() <-chan struct{} {
	return f.done
}

func (f *futureTask) Cancel() bool {
	if f.state.CompareAndSwap(futureNew, futureCancelled) {
		f.err = core.ErrCancelled
		close(f.done)
		return true
	}
	return false
}

func (f *futureTask) IsCancelled() bool {
	return f.state.Load() == futureCancelled
}
