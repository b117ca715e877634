package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"innsync_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishDispatchesToSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var wg sync.WaitGroup
	wg.Add(2)
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, e Event) error {
		wg.Done()
		return nil
	}))
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, e Event) error {
		wg.Done()
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "thing.happened"})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not run")
	}
}

func TestPublishRecoversPanickingHandler(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	ran := make(chan struct{})
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, e Event) error {
		panic("boom")
	}))
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, e Event) error {
		close(ran)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "thing.happened"})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("surviving handler did not run")
	}
}

func TestPublishWithNoSubscribersIsNoOp(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "thing.ignored"})
}
