package core

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// SpanAwareTask runs a Task with the span that was active where the
// wrapper was created.
type SpanAwareTask struct {
	task Task
	span Span
}

// WrapTask captures the active span of the calling goroutine for task.
// It panics if task is nil.
func WrapTask(task Task) *SpanAwareTask {
	return NewSpanAwareTask(task, ActiveSpan())
}

// NewSpanAwareTask wraps task with an explicit span snapshot.
func NewSpanAwareTask(task Task, span Span) *SpanAwareTask {
	if task == nil {
		panic("SpanAwareTask: task must not be nil")
	}
	if span == nil {
		span = NoopSpan
	}
	return &SpanAwareTask{task: task, span: span}
}

// Span returns the captured span.
func (t *SpanAwareTask) Span() Span {
	return t.span
}

// Run activates the captured span, runs the task and restores whatever the
// running goroutine had active before, even when the task panics.
func (t *SpanAwareTask) Run(ctx context.Context) {
	d := Activate(t.span)
	defer Deactivate(d)
	t.task(withSpan(ctx, t.span))
}

// AsTask returns Run as a plain Task.
func (t *SpanAwareTask) AsTask() Task {
	return t.Run
}

// SpanAwareCallable is the value-returning counterpart of SpanAwareTask.
type SpanAwareCallable struct {
	task Callable
	span Span
}

// WrapCallable captures the active span of the calling goroutine for task.
// It panics if task is nil.
func WrapCallable(task Callable) *SpanAwareCallable {
	return NewSpanAwareCallable(task, ActiveSpan())
}

// NewSpanAwareCallable wraps task with an explicit span snapshot.
func NewSpanAwareCallable(task Callable, span Span) *SpanAwareCallable {
	if task == nil {
		panic("SpanAwareCallable: task must not be nil")
	}
	if span == nil {
		span = NoopSpan
	}
	return &SpanAwareCallable{task: task, span: span}
}

// Span returns the captured span.
func (c *SpanAwareCallable) Span() Span {
	return c.span
}

// Call activates the captured span around the task. The result and error
// of the task are returned untouched.
func (c *SpanAwareCallable) Call(ctx context.Context) (any, error) {
	d := Activate(c.span)
	defer Deactivate(d)
	return c.task(withSpan(ctx, c.span))
}

// AsCallable returns Call as a plain Callable.
func (c *SpanAwareCallable) AsCallable() Callable {
	return c.Call
}

func withSpan(ctx context.Context, span Span) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if IsNoopSpan(span) {
		return ctx
	}
	return trace.ContextWithSpan(ctx, span)
}
