package store

import "sync"

// Observable is a publish/subscribe value. Subscribers receive the current
// value on subscription and every subsequent one until cancelled. Emission is
// synchronous with the mutation and carries no threading guarantees of its
// own; subscribers must not call back into the observable.
type Observable[T any] struct {
	mu    sync.Mutex
	value T
	subs  map[int]func(T)
	next  int
}

func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial, subs: map[int]func(T){}}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// Set stores a new value and notifies every subscriber.
func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = v
	for _, fn := range o.subs {
		fn(v)
	}
}

// Subscribe registers fn, invokes it immediately with the current value and
// returns a cancel function.
func (o *Observable[T]) Subscribe(fn func(T)) (cancel func()) {
	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = fn
	v := o.value
	fn(v)
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}
