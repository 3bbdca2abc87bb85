package core

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Span is the token propagated between goroutines. Its lifecycle (start,
// end, attributes) is owned by whoever created it; this package only reads it.
type Span = trace.Span

// NoopSpan is the distinguished "nothing is active" span.
var NoopSpan = trace.SpanFromContext(context.Background())

// IsNoopSpan reports whether span is nil or the NoopSpan sentinel.
func IsNoopSpan(span Span) bool {
	return span == nil || span == NoopSpan
}

// ContextWithActiveSpan returns a copy of ctx carrying the active span of the
// calling goroutine, so otel-instrumented code started from ctx uses it as parent.
// ctx is returned unchanged when no span is active.
func ContextWithActiveSpan(ctx context.Context) context.Context {
	span := ActiveSpan()
	if IsNoopSpan(span) {
		return ctx
	}
	return trace.ContextWithSpan(ctx, span)
}

// ActivateFromContext activates the span carried by ctx on the calling goroutine.
// A ctx without a span activates NoopSpan.
func ActivateFromContext(ctx context.Context) *Deactivator {
	return Activate(trace.SpanFromContext(ctx))
}
