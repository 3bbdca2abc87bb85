package core

import (
	"context"
	"sync/atomic"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// isolate installs a fresh GoroutineBackend and a silent logger for the
// duration of the test.
func isolate(t *testing.T) *GoroutineBackend {
	t.Helper()
	b := NewGoroutineBackend()
	prevBackend := SetBackend(b)
	prevLogger := SetLogger(NewNoOpLogger())
	t.Cleanup(func() {
		SetBackend(prevBackend)
		SetLogger(prevLogger)
	})
	return b
}

// newSpan starts a real SDK span named name.
func newSpan(t *testing.T, name string) Span {
	t.Helper()
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	_, span := tp.Tracer("spanrunner-test").Start(context.Background(), name)
	t.Cleanup(func() { span.End() })
	return span
}

// spanName returns the name of an SDK span, or "" for the sentinel.
func spanName(span Span) string {
	if ro, ok := span.(sdktrace.ReadOnlySpan); ok {
		return ro.Name()
	}
	return ""
}

// countingBackend wraps GoroutineBackend and counts activations.
type countingBackend struct {
	*GoroutineBackend
	activations atomic.Int32
	restores    atomic.Int32
}

func newCountingBackend() *countingBackend {
	return &countingBackend{GoroutineBackend: NewGoroutineBackend()}
}

func (b *countingBackend) SetActive(span Span) (*Deactivator, error) {
	b.activations.Add(1)
	return b.GoroutineBackend.SetActive(span)
}

func (b *countingBackend) Restore(d *Deactivator) error {
	b.restores.Add(1)
	return b.GoroutineBackend.Restore(d)
}

// failingBackend fails every operation with err, or panics when err is nil.
type failingBackend struct {
	err error
}

func (b failingBackend) fail() error {
	if b.err == nil {
		panic("backend exploded")
	}
	return b.err
}

func (b failingBackend) Active() (Span, error)                { return nil, b.fail() }
func (b failingBackend) SetActive(Span) (*Deactivator, error) { return nil, b.fail() }
func (b failingBackend) Restore(*Deactivator) error           { return b.fail() }
func (b failingBackend) ClearAll() (bool, error)              { return true, b.fail() }

// unregisterAllBackends empties the discovery registry for the test.
func unregisterAllBackends(t *testing.T) {
	t.Helper()
	registryMu.Lock()
	saved := registry
	registry = make(map[string]BackendFactory)
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})
}
