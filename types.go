package spanrunner

import "github.com/Swind/go-span-runner/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the spanrunner package for most use cases.

// Span is the propagated token (an OpenTelemetry span)
type Span = core.Span

// Task is the unit of work (Closure)
type Task = core.Task

// Callable is a unit of work producing a value
type Callable = core.Callable

// Future is the result handle of a submitted task
type Future = core.Future

// ExecutorService is the submission and lifecycle interface of a worker pool
type ExecutorService = core.ExecutorService

// Deactivator restores the span that was active before an Activate call
type Deactivator = core.Deactivator

// Backend stores the active span of each goroutine
type Backend = core.Backend

// NoopSpan is the "nothing is active" span
var NoopSpan = core.NoopSpan

// Propagation API
var (
	ActiveSpan   = core.ActiveSpan
	Activate     = core.Activate
	Deactivate   = core.Deactivate
	ClearAll     = core.ClearAll
	WrapTask     = core.WrapTask
	WrapCallable = core.WrapCallable
)

// Traced decorates executor so that submitted tasks run with the submitter's
// active span. Decorating twice returns the same executor. Panics if
// executor is nil, including a nil *GoroutineThreadPool.
func Traced(executor ExecutorService) ExecutorService {
	if pool, ok := executor.(*GoroutineThreadPool); ok && pool == nil {
		panic("Traced: executor must not be nil")
	}
	return core.Traced(executor)
}
