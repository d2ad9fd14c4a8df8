// ABOUTME: Typed observer bus with explicit subscribe/unsubscribe for decoupled components
// ABOUTME: Goroutine-safe; handlers run synchronously and a panicking handler never stops delivery

package eventbus

import (
	"fmt"
	"sync"
)

// Handler is a callback function for events.
type Handler[T any] func(T)

// PanicHandler receives the recovered value of a handler that panicked.
type PanicHandler func(recovered any)

// Bus is a typed event bus that delivers events to registered handlers.
type Bus[T any] struct {
	mu       sync.RWMutex
	handlers map[int]Handler[T]
	order    []int
	nextID   int
	closed   bool
	onPanic  PanicHandler
}

// New creates a new event bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{
		handlers: make(map[int]Handler[T]),
	}
}

// OnPanic installs a callback for handlers that panic during Publish.
// Without one, the panic value is discarded after recovery.
func (b *Bus[T]) OnPanic(fn PanicHandler) {
	b.mu.Lock()
	b.onPanic = fn
	b.mu.Unlock()
}

// Subscribe registers a handler and returns an unsubscribe function.
// Subscribing to a closed bus returns a no-op unsubscribe.
func (b *Bus[T]) Subscribe(handler Handler[T]) func() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
		})
	}
}

// Publish sends an event to all registered handlers in subscription order.
// Handlers are called synchronously on the publishing goroutine.
func (b *Bus[T]) Publish(event T) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	// Snapshot handlers to avoid holding lock during callbacks
	snapshot := make([]Handler[T], 0, len(b.order))
	for _, id := range b.order {
		snapshot = append(snapshot, b.handlers[id])
	}
	onPanic := b.onPanic
	b.mu.RUnlock()

	for _, h := range snapshot {
		deliver(h, event, onPanic)
	}
}

func deliver[T any](h Handler[T], event T, onPanic PanicHandler) {
	defer func() {
		if r := recover(); r != nil && onPanic != nil {
			onPanic(r)
		}
	}()
	h(event)
}

// Count returns the number of registered handlers.
func (b *Bus[T]) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Close drops every handler; later Publish calls are no-ops.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	b.closed = true
	b.handlers = make(map[int]Handler[T])
	b.order = nil
	b.mu.Unlock()
}

// PanicError wraps a recovered panic value as an error.
func PanicError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return fmt.Errorf("handler panic: %w", err)
	}
	return fmt.Errorf("handler panic: %v", recovered)
}
