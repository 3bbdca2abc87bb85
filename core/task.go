package core

import (
	"context"
	"errors"
	"time"
)

// Task is the unit of work (Closure)
type Task func(ctx context.Context)

// Callable is a unit of work producing a value.
type Callable func(ctx context.Context) (any, error)

var (
	// ErrNilTasks is returned by batch submission when the task slice is nil.
	ErrNilTasks = errors.New("task collection is nil")

	// ErrCancelled is returned by Future.Get after a successful Cancel.
	ErrCancelled = errors.New("task cancelled")

	// ErrRejected completes futures of tasks refused by a shut down executor.
	ErrRejected = errors.New("task rejected: executor is shut down")
)

// =============================================================================
// Future: Result handle of a submitted task
// =============================================================================
type Future interface {
	// Get waits for the task and returns its result, or ctx.Err() when ctx
	// is done first.
	Get(ctx context.Context) (any, error)

	// Done is closed once the task completed, failed or was cancelled.
	Done() <-chan struct{}

	// Cancel prevents a task that has not started yet from running.
	// It reports whether the task was cancelled by this call.
	Cancel() bool

	IsCancelled() bool
}

// =============================================================================
// ExecutorService: Task submission and lifecycle interface of a worker pool
// =============================================================================
type ExecutorService interface {
	Execute(task Task)
	Submit(task Task) Future

	// SubmitWithResult completes the returned Future with result once task ran.
	SubmitWithResult(task Task, result any) Future
	SubmitCallable(task Callable) Future

	// InvokeAll runs every task and waits for all of them.
	InvokeAll(ctx context.Context, tasks []Callable) ([]Future, error)
	InvokeAllTimeout(ctx context.Context, tasks []Callable, timeout time.Duration) ([]Future, error)

	// InvokeAny returns the result of the first task that succeeds.
	InvokeAny(ctx context.Context, tasks []Callable) (any, error)
	InvokeAnyTimeout(ctx context.Context, tasks []Callable, timeout time.Duration) (any, error)

	Shutdown()
	ShutdownNow() []Task
	IsShutdown() bool
	IsTerminated() bool
	AwaitTermination(timeout time.Duration) bool
}
