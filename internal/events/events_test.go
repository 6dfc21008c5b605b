package events

import (
	"testing"
)

func TestBus(t *testing.T) {
	bus := NewBus[int](nil)

	var received []int
	unsubscribe := bus.Subscribe(func(v int) {
		received = append(received, v)
	})

	bus.Publish(1)
	bus.Publish(2)

	if len(received) != 2 || received[0] != 1 || received[1] != 2 {
		t.Fatalf("expected [1 2], got %v", received)
	}

	unsubscribe()
	bus.Publish(3)
	if len(received) != 2 {
		t.Errorf("expected no delivery after unsubscribe, got %v", received)
	}

	// Second call is a no-op.
	unsubscribe()
	if bus.Len() != 0 {
		t.Errorf("expected 0 listeners, got %d", bus.Len())
	}
}

func TestBusRegistrationOrder(t *testing.T) {
	bus := NewBus[string](nil)
	var order []string

	bus.Subscribe(func(string) { order = append(order, "first") })
	unsubSecond := bus.Subscribe(func(string) { order = append(order, "second") })
	bus.Subscribe(func(string) { order = append(order, "third") })

	bus.Publish("x")
	if got := len(order); got != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("unexpected order %v", order)
	}

	order = nil
	unsubSecond()
	bus.Publish("y")
	if len(order) != 2 || order[0] != "first" || order[1] != "third" {
		t.Fatalf("unexpected order after removal %v", order)
	}
}

func TestBusNoSubscribers(t *testing.T) {
	bus := NewBus[struct{}](nil)
	// Should not panic
	bus.Publish(struct{}{})
}

func TestBusRecoversListenerPanic(t *testing.T) {
	bus := NewBus[int](nil)
	var after int

	bus.Subscribe(func(int) { panic("boom") })
	bus.Subscribe(func(v int) { after = v })

	bus.Publish(7)
	if after != 7 {
		t.Errorf("expected later listener to still run, got %d", after)
	}
}

func TestBusUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus[int](nil)
	var calls int
	var unsubscribe func()
	unsubscribe = bus.Subscribe(func(int) {
		calls++
		unsubscribe()
	})

	bus.Publish(1)
	bus.Publish(2)
	if calls != 1 {
		t.Errorf("expected exactly one call, got %d", calls)
	}
}
