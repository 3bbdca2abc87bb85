package core

import (
	"errors"
	"fmt"
)

// ErrForeignDeactivator is returned by a backend asked to restore a
// Deactivator that was issued to a different goroutine.
var ErrForeignDeactivator = errors.New("deactivator belongs to another goroutine")

// Backend stores the active span of each goroutine.
//
// Every method acts on the calling goroutine only. Implementations may
// return errors or even panic; the package-level API masks both.
type Backend interface {
	// Active returns the active span of the calling goroutine.
	// A nil span is treated as NoopSpan.
	Active() (Span, error)

	// SetActive makes span active and returns a Deactivator remembering
	// the span that was active immediately before.
	SetActive(span Span) (*Deactivator, error)

	// Restore makes the span remembered by d active again, regardless of
	// what was activated in between.
	Restore(d *Deactivator) error

	// ClearAll drops all active state and reports whether there was any.
	ClearAll() (bool, error)
}

// BackendFactory creates a Backend during discovery.
type BackendFactory func() (Backend, error)

// Deactivator is handed out by Activate and passed back to Deactivate.
// It remembers the goroutine it was issued to and the span that was
// active there before the activation.
type Deactivator struct {
	owner    int64
	previous Span
}

// NewDeactivator creates a Deactivator for backend implementations.
func NewDeactivator(owner int64, previous Span) *Deactivator {
	if previous == nil {
		previous = NoopSpan
	}
	return &Deactivator{owner: owner, previous: previous}
}

// Owner returns the id of the goroutine the Deactivator was issued to.
func (d *Deactivator) Owner() int64 {
	return d.owner
}

// Previous returns the span restored by this Deactivator.
func (d *Deactivator) Previous() Span {
	return d.previous
}

func (d *Deactivator) String() string {
	return fmt.Sprintf("Deactivator{goroutine: %d, previous: %v}", d.owner, spanLabel(d.previous))
}

func spanLabel(span Span) string {
	if IsNoopSpan(span) {
		return "noop"
	}
	sc := span.SpanContext()
	if !sc.IsValid() {
		return fmt.Sprintf("%T", span)
	}
	return sc.TraceID().String() + "/" + sc.SpanID().String()
}
