// Package store provides observable value cells and durable key/value
// backends used to persist application settings.
package store

import (
	"slices"
	"sync"
)

// Writable is an observable value. Subscribers receive the current value on
// subscribe and every value set afterwards, in the order the updates were
// applied.
//
// Subscribers run synchronously on the updating goroutine. They may call Get
// but must not call Set or Update on the same cell.
type Writable[T any] struct {
	emit sync.Mutex // serializes update+notify so subscribers see values in order

	mu    sync.Mutex
	value T
	subs  map[uint64]func(T)
	next  uint64
}

// NewWritable creates a cell holding initial.
func NewWritable[T any](initial T) *Writable[T] {
	return &Writable[T]{
		value: initial,
		subs:  make(map[uint64]func(T)),
	}
}

// Get returns the current value.
func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Set replaces the value and notifies subscribers.
func (w *Writable[T]) Set(v T) {
	w.Update(func(T) T { return v })
}

// Update applies fn to the current value as one atomic step and notifies
// subscribers with the result.
func (w *Writable[T]) Update(fn func(T) T) {
	w.emit.Lock()
	defer w.emit.Unlock()

	w.mu.Lock()
	w.value = fn(w.value)
	v := w.value
	subs := w.snapshotSubsLocked()
	w.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers fn and calls it immediately with the current value.
// The returned func removes the subscription.
func (w *Writable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	w.emit.Lock()
	defer w.emit.Unlock()

	w.mu.Lock()
	id := w.next
	w.next++
	w.subs[id] = fn
	v := w.value
	w.mu.Unlock()

	fn(v)

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
		})
	}
}

func (w *Writable[T]) snapshotSubsLocked() []func(T) {
	if len(w.subs) == 0 {
		return nil
	}
	// Notify in subscription order.
	ids := make([]uint64, 0, len(w.subs))
	for id := range w.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(T), len(ids))
	for i, id := range ids {
		out[i] = w.subs[id]
	}
	return out
}
