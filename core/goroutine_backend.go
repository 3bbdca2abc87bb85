package core

import (
	"sync"

	"github.com/petermattis/goid"
)

// GoroutineBackend is the default Backend. It keeps one slot per goroutine
// holding the single active span of that goroutine.
//
// The map is shared but each key is only read or written by the goroutine
// it identifies, so no entry is ever contended. Slots that fall back to
// NoopSpan are removed to keep exited goroutines from leaking entries.
type GoroutineBackend struct {
	slots sync.Map // int64 -> Span
}

var _ Backend = (*GoroutineBackend)(nil)

// NewGoroutineBackend creates an empty GoroutineBackend.
func NewGoroutineBackend() *GoroutineBackend {
	return &GoroutineBackend{}
}

func (b *GoroutineBackend) Active() (Span, error) {
	return b.load(goid.Get()), nil
}

func (b *GoroutineBackend) SetActive(span Span) (*Deactivator, error) {
	id := goid.Get()
	previous := b.load(id)
	b.store(id, span)
	return NewDeactivator(id, previous), nil
}

func (b *GoroutineBackend) Restore(d *Deactivator) error {
	id := goid.Get()
	if d.Owner() != id {
		return ErrForeignDeactivator
	}
	b.store(id, d.Previous())
	return nil
}

func (b *GoroutineBackend) ClearAll() (bool, error) {
	_, loaded := b.slots.LoadAndDelete(goid.Get())
	return loaded, nil
}

// Len returns the number of goroutines that currently have an active span.
func (b *GoroutineBackend) Len() int {
	n := 0
	b.slots.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (b *GoroutineBackend) String() string {
	return "GoroutineBackend"
}

func (b *GoroutineBackend) load(id int64) Span {
	if v, ok := b.slots.Load(id); ok {
		return v.(Span)
	}
	return NoopSpan
}

func (b *GoroutineBackend) store(id int64, span Span) {
	if IsNoopSpan(span) {
		b.slots.Delete(id)
		return
	}
	b.slots.Store(id, span)
}
