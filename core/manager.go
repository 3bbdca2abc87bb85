package core

import (
	"fmt"
	"sync/atomic"
)

// Operation names reported to Metrics.RecordBackendFailure.
const (
	OpActive     = "active"
	OpActivate   = "activate"
	OpDeactivate = "deactivate"
	OpClearAll   = "clear_all"
)

type backendHolder struct{ Backend }

// instance is the process-wide backend, resolved lazily on first use.
var instance atomic.Pointer[backendHolder]

func currentBackend() Backend {
	if h := instance.Load(); h != nil {
		return h.Backend
	}
	// Concurrent first callers may all run discovery; only one result is kept.
	candidate := &backendHolder{discoverBackend(currentConfig())}
	for {
		if instance.CompareAndSwap(nil, candidate) {
			logger().Debug("active span backend resolved", F("backend", backendName(candidate.Backend)))
			return candidate.Backend
		}
		if h := instance.Load(); h != nil {
			return h.Backend
		}
	}
}

// SetBackend installs b as the process-wide backend and returns the previously
// installed one, or nil if none had been resolved yet. Passing nil makes the
// next call resolve a backend through discovery again.
func SetBackend(b Backend) Backend {
	var prev *backendHolder
	if b == nil {
		prev = instance.Swap(nil)
	} else {
		prev = instance.Swap(&backendHolder{b})
	}
	if prev == nil {
		return nil
	}
	return prev.Backend
}

// CurrentBackend returns the process-wide backend, resolving it if needed.
func CurrentBackend() Backend {
	return currentBackend()
}

// ActiveSpan returns the span active on the calling goroutine, or NoopSpan.
// It never fails: backend errors are logged and masked.
func ActiveSpan() Span {
	return attempt(OpActive, NoopSpan, nil, func(b Backend) (Span, error) {
		span, err := b.Active()
		if span == nil {
			span = NoopSpan
		}
		return span, err
	})
}

// Activate makes span the active span of the calling goroutine. A nil span
// activates NoopSpan. The returned Deactivator restores the previous span;
// it is nil when the backend failed, which Deactivate accepts as a no-op.
func Activate(span Span) *Deactivator {
	if span == nil {
		span = NoopSpan
	}
	return attempt(OpActivate, (*Deactivator)(nil), span, func(b Backend) (*Deactivator, error) {
		return b.SetActive(span)
	})
}

// Deactivate restores the span that was active when d was obtained.
// A nil d is ignored. Backend errors are logged and swallowed.
func Deactivate(d *Deactivator) {
	if d == nil {
		return
	}
	attempt(OpDeactivate, struct{}{}, d, func(b Backend) (struct{}, error) {
		return struct{}{}, b.Restore(d)
	})
}

// ClearAll drops every active span of the calling goroutine, typically before
// a pooled goroutine picks up unrelated work. It reports whether anything
// was cleared; a backend failure reports false.
func ClearAll() bool {
	return attempt(OpClearAll, false, nil, func(b Backend) (bool, error) {
		return b.ClearAll()
	})
}

// attempt runs fn against the current backend, turning errors and panics into
// fallback. subject is only used for the log entry.
func attempt[T any](op string, fallback T, subject any, fn func(Backend) (T, error)) (result T) {
	var b Backend
	defer func() {
		if r := recover(); r != nil {
			reportFailure(op, b, subject, fmt.Errorf("backend panicked: %v", r))
			result = fallback
		}
	}()
	b = currentBackend()
	v, err := fn(b)
	if err != nil {
		reportFailure(op, b, subject, err)
		return fallback
	}
	return v
}

func reportFailure(op string, b Backend, subject any, err error) {
	fields := []Field{F("op", op), F("backend", backendName(b)), F("error", err)}
	switch s := subject.(type) {
	case nil:
	case Span:
		fields = append(fields, F("span", spanLabel(s)))
	default:
		fields = append(fields, F("subject", fmt.Sprint(s)))
	}
	logger().Warn("active span operation failed", fields...)
	metrics().RecordBackendFailure(op)
}

func backendName(b Backend) string {
	if b == nil {
		return "<unresolved>"
	}
	if s, ok := b.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", b)
}
