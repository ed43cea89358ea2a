package eventing

import (
	"context"
	"errors"
	"testing"
)

type pointCreated struct {
	ID string
}

type pointRemoved struct {
	ID string
}

func TestPublishDispatchesByType(t *testing.T) {
	bus := NewInMemoryBus()

	var created []string
	bus.Subscribe(EventTypeOf[pointCreated](), func(_ context.Context, event any) error {
		evt, ok := event.(pointCreated)
		if !ok {
			return ErrInvalidEventType
		}
		created = append(created, evt.ID)
		return nil
	})
	bus.Subscribe(EventTypeOf[pointRemoved](), func(_ context.Context, event any) error {
		t.Fatal("removed handler should not fire")
		return nil
	})

	if err := bus.Publish(context.Background(), pointCreated{ID: "p1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(created) != 1 || created[0] != "p1" {
		t.Fatalf("unexpected deliveries: %v", created)
	}
}

func TestPublishPreservesOrderPerHandler(t *testing.T) {
	bus := NewInMemoryBus()

	var seen []string
	bus.Subscribe(EventTypeOf[pointCreated](), func(_ context.Context, event any) error {
		seen = append(seen, event.(pointCreated).ID)
		return nil
	})

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := bus.Publish(ctx, pointCreated{ID: id}); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}
	if len(seen) != 3 || seen[0] != "a" || seen[1] != "b" || seen[2] != "c" {
		t.Fatalf("delivery out of order: %v", seen)
	}
}

func TestPublishContinuesAfterHandlerError(t *testing.T) {
	bus := NewInMemoryBus()
	first := errors.New("boom")
	second := errors.New("bang")

	var lastCalled bool
	bus.Subscribe(EventTypeOf[pointCreated](), func(_ context.Context, _ any) error {
		return first
	})
	bus.Subscribe(EventTypeOf[pointCreated](), func(_ context.Context, _ any) error {
		return second
	})
	bus.Subscribe(EventTypeOf[pointCreated](), func(_ context.Context, _ any) error {
		lastCalled = true
		return nil
	})

	err := bus.Publish(context.Background(), pointCreated{ID: "p1"})
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both handler errors joined, got %v", err)
	}
	if !lastCalled {
		t.Fatal("later handler skipped after earlier errors")
	}
}

func TestSubscribeToHandlesTypedEvents(t *testing.T) {
	bus := NewInMemoryBus()

	var created []string
	SubscribeTo(bus, func(_ context.Context, evt *pointCreated) error {
		created = append(created, evt.ID)
		return nil
	})

	if err := bus.Publish(context.Background(), &pointCreated{ID: "p1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(created) != 1 || created[0] != "p1" {
		t.Fatalf("unexpected deliveries: %v", created)
	}

	// A value publish reaches the same subscription but fails the pointer
	// assertion.
	if err := bus.Publish(context.Background(), pointCreated{ID: "p2"}); !errors.Is(err, ErrInvalidEventType) {
		t.Fatalf("expected ErrInvalidEventType, got %v", err)
	}
}

func TestPublishNilEvent(t *testing.T) {
	bus := NewInMemoryBus()
	if err := bus.Publish(context.Background(), nil); !errors.Is(err, ErrNilEvent) {
		t.Fatalf("expected ErrNilEvent, got %v", err)
	}
}
