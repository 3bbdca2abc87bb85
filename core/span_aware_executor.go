package core

import (
	"context"
	"time"
)

// SpanAwareExecutorService decorates an ExecutorService so that every task
// submitted through it runs with the span active at submission time.
// Lifecycle methods are forwarded untouched.
type SpanAwareExecutorService struct {
	delegate ExecutorService
}

var _ ExecutorService = (*SpanAwareExecutorService)(nil)

// Traced returns a span-aware view of delegate. An executor that is already
// span-aware is returned as is. Panics if delegate is nil. A nil pointer of
// another executor type is not detected here and panics on first use.
func Traced(delegate ExecutorService) ExecutorService {
	if delegate == nil {
		panic("SpanAwareExecutorService: delegate executor must not be nil")
	}
	if traced, ok := delegate.(*SpanAwareExecutorService); ok {
		if traced == nil {
			panic("SpanAwareExecutorService: delegate executor must not be nil")
		}
		return traced
	}
	return &SpanAwareExecutorService{delegate: delegate}
}

// Delegate returns the decorated executor.
func (s *SpanAwareExecutorService) Delegate() ExecutorService {
	return s.delegate
}

func (s *SpanAwareExecutorService) Execute(task Task) {
	s.delegate.Execute(s.wrapTask(task))
}

func (s *SpanAwareExecutorService) Submit(task Task) Future {
	return s.delegate.Submit(s.wrapTask(task))
}

func (s *SpanAwareExecutorService) SubmitWithResult(task Task, result any) Future {
	return s.delegate.SubmitWithResult(s.wrapTask(task), result)
}

func (s *SpanAwareExecutorService) SubmitCallable(task Callable) Future {
	wrapped := WrapCallable(task)
	metrics().RecordTaskWrapped("callable")
	return s.delegate.SubmitCallable(wrapped.Call)
}

func (s *SpanAwareExecutorService) InvokeAll(ctx context.Context, tasks []Callable) ([]Future, error) {
	traced, err := tracedTasks(tasks)
	if err != nil {
		return nil, err
	}
	return s.delegate.InvokeAll(ctx, traced)
}

func (s *SpanAwareExecutorService) InvokeAllTimeout(ctx context.Context, tasks []Callable, timeout time.Duration) ([]Future, error) {
	traced, err := tracedTasks(tasks)
	if err != nil {
		return nil, err
	}
	return s.delegate.InvokeAllTimeout(ctx, traced, timeout)
}

func (s *SpanAwareExecutorService) InvokeAny(ctx context.Context, tasks []Callable) (any, error) {
	traced, err := tracedTasks(tasks)
	if err != nil {
		return nil, err
	}
	return s.delegate.InvokeAny(ctx, traced)
}

func (s *SpanAwareExecutorService) InvokeAnyTimeout(ctx context.Context, tasks []Callable, timeout time.Duration) (any, error) {
	traced, err := tracedTasks(tasks)
	if err != nil {
		return nil, err
	}
	return s.delegate.InvokeAnyTimeout(ctx, traced, timeout)
}

func (s *SpanAwareExecutorService) Shutdown()           { s.delegate.Shutdown() }
func (s *SpanAwareExecutorService) ShutdownNow() []Task { return s.delegate.ShutdownNow() }
func (s *SpanAwareExecutorService) IsShutdown() bool    { return s.delegate.IsShutdown() }
func (s *SpanAwareExecutorService) IsTerminated() bool  { return s.delegate.IsTerminated() }
func (s *SpanAwareExecutorService) AwaitTermination(timeout time.Duration) bool {
	return s.delegate.AwaitTermination(timeout)
}

func (s *SpanAwareExecutorService) wrapTask(task Task) Task {
	wrapped := WrapTask(task)
	metrics().RecordTaskWrapped("task")
	return wrapped.Run
}

// tracedTasks wraps every task with one snapshot of the active span.
func tracedTasks(tasks []Callable) ([]Callable, error) {
	if tasks == nil {
		return nil, ErrNilTasks
	}
	span := ActiveSpan()
	out := make([]Callable, len(tasks))
	for i, task := range tasks {
		out[i] = NewSpanAwareCallable(task, span).Call
		metrics().RecordTaskWrapped("callable")
	}
	return out, nil
}
