package syncx

import (
	"testing"
	"time"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHubFansOutToAllOwnerChannels(t *testing.T) {
	h := NewHub()
	ch1, cancel1 := h.Subscribe("u1")
	defer cancel1()
	ch2, cancel2 := h.Subscribe("u1")
	defer cancel2()

	h.Publish("u1", Event{Type: EventUpdate})

	for i, ch := range []<-chan Event{ch1, ch2} {
		if ev := recvEvent(t, ch); ev.Type != EventUpdate {
			t.Fatalf("subscriber %d got %q, want update", i, ev.Type)
		}
	}
}

func TestHubScopedByOwner(t *testing.T) {
	h := NewHub()
	ch1, cancel1 := h.Subscribe("u1")
	defer cancel1()
	ch2, cancel2 := h.Subscribe("u2")
	defer cancel2()

	h.Publish("u1", Event{Type: EventUpdate})

	recvEvent(t, ch1)
	select {
	case ev := <-ch2:
		t.Fatalf("u2 received u1's event: %+v", ev)
	default:
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("u1")
	cancel()
	cancel() // idempotent

	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}
	if n := h.Subscribers("u1"); n != 0 {
		t.Fatalf("subscribers = %d after cancel", n)
	}
	// publishing to an owner with no channels is a no-op
	h.Publish("u1", Event{Type: EventUpdate})
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	_, cancelSlow := h.Subscribe("u1") // never drained
	defer cancelSlow()
	live, cancelLive := h.Subscribe("u1")
	defer cancelLive()

	// overflow the slow subscriber's buffer; Publish must never stall
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish("u1", Event{Type: EventUpdate, ID: int64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	// the live channel still saw events (its buffer filled, extras dropped)
	recvEvent(t, live)
}
