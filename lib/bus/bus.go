// Package bus carries semantic events between the state hub and the two
// protocol engines.
package bus

import (
	"errors"
	"reflect"
	"sync"
)

var ErrNotFound = errors.New("bus: listener not registered")

// Listener receives published events. Listeners are identified by ==, so
// register pointers; a non-comparable listener is never matched by Register
// or Unregister.
type Listener interface {
	HandleEvent(e Event)
}

// Bus delivers every published event to all registered listeners, in
// registration order, on the publishing goroutine.
type Bus struct {
	mu        sync.Mutex
	listeners []Listener
}

func New() *Bus {
	return &Bus{}
}

// Register adds l. Registering the same listener twice is a no-op.
func (b *Bus) Register(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, x := range b.listeners {
		if same(x, l) {
			return
		}
	}
	b.listeners = append(b.listeners, l)
}

func (b *Bus) Unregister(l Listener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, x := range b.listeners {
		if same(x, l) {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (b *Bus) Publish(e Event) {
	for _, l := range b.snapshot() {
		l.HandleEvent(e)
	}
}

func (b *Bus) snapshot() []Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Listener, len(b.listeners))
	copy(out, b.listeners)
	return out
}

func same(a, b Listener) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
