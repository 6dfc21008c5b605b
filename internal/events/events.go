package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Listener receives published values.
type Listener[T any] func(T)

type subscription[T any] struct {
	id       uint64
	listener Listener[T]
}

// Bus provides in-process fan-out of values to subscribers.
// Publish calls every listener synchronously, in registration order, once
// per call; bursts are not coalesced.
type Bus[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription[T]
	logger *zerolog.Logger
}

// NewBus constructs an empty bus. logger may be nil.
func NewBus[T any](logger *zerolog.Logger) *Bus[T] {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Bus[T]{logger: logger}
}

// Subscribe registers a listener and returns a function that removes it.
// The returned function is safe to call more than once.
func (b *Bus[T]) Subscribe(listener Listener[T]) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription[T]{id: id, listener: listener})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered listeners.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish notifies every listener registered at the time of the call.
func (b *Bus[T]) Publish(value T) {
	b.mu.RLock()
	subs := append([]subscription[T](nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, value)
	}
}

func (b *Bus[T]) deliver(s subscription[T], value T) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Uint64("subscription", s.id).Msg("listener panicked")
		}
	}()
	s.listener(value)
}
