package events

import (
	"context"
	"sync"

	"innsync_backend/platform/logger"
)

// InMemoryBus is a simple in-process event bus. Handlers registered for an
// event name run in their own goroutine on Publish; panics are recovered so
// one handler cannot take down the publisher.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to all handlers asynchronously.
// Handler errors are logged and otherwise ignored.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.EventName()]
	b.mu.RUnlock()

	for _, h := range handlers {
		handler := h
		go func() {
			defer b.recoverPanic(event.EventName())
			// Detach from the caller's context so request cancellation
			// does not abort in-flight handlers.
			if err := handler.Handle(context.WithoutCancel(ctx), event); err != nil {
				b.log.Error("event handler failed", "event", event.EventName(), "error", err)
			}
		}()
	}
}

func (b *InMemoryBus) recoverPanic(eventName string) {
	if r := recover(); r != nil {
		b.log.Error("event handler panicked", "event", eventName, "panic", r)
	}
}
