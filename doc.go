// Package spanrunner propagates the active tracing span across goroutine
// boundaries of a worker pool.
//
// Each goroutine has at most one active span. Code that schedules work on
// another goroutine wraps the work, capturing the span active at scheduling
// time; the goroutine that eventually runs it activates that span for the
// duration of the task and restores its own afterwards.
//
// # Quick Start
//
// Initialize the global thread pool at application startup:
//
//	spanrunner.InitGlobalThreadPool(4) // 4 workers
//	defer spanrunner.ShutdownGlobalThreadPool()
//
// Submit work through the span-aware executor:
//
//	d := spanrunner.Activate(span)
//	defer spanrunner.Deactivate(d)
//
//	f := spanrunner.GlobalExecutor().SubmitCallable(func(ctx context.Context) (any, error) {
//		// spanrunner.ActiveSpan() == span here, and ctx carries it too
//		return nil, nil
//	})
//
// # Key Concepts
//
// Backend: Stores the active span per goroutine. The default backend keys
// slots by goroutine id. Alternative backends are registered with
// core.RegisterBackend and picked up on first use when exactly one is
// registered (or named by SPANRUNNER_BACKENDS); core.SetBackend overrides
// discovery explicitly.
//
// Deactivator: Returned by Activate. Deactivate restores exactly the span
// that was active before, so out-of-order or repeated calls never fail.
//
// SpanAwareExecutorService: Decorates any ExecutorService so every
// submission entry point wraps its tasks. Lifecycle calls pass through.
//
// # Failure Handling
//
// The propagation API never fails: backend errors and panics are logged at
// warn level and replaced by NoopSpan, a nil Deactivator or false. Misuse of
// the API itself (nil executor, nil task, nil task slice) fails immediately.
package spanrunner
