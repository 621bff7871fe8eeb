// bus/bus_test.go
package bus

import (
	"testing"
	"time"
)

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(Topic{"sim", "status"})

	conn.Publish(&Message{Topic: Topic{"sim", "status"}, Payload: "connected"})

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "connected" {
			t.Errorf("expected payload 'connected', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.PublishRetained(Topic{"sim", "title"}, "Cessna 152")

	// Late subscriber still sees the retained value.
	sub := conn.Subscribe(Topic{"sim", "title"})

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "Cessna 152" {
			t.Errorf("expected retained payload, got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for retained message")
	}

	if msg, ok := b.Retained(Topic{"sim", "title"}); !ok || msg.Payload.(string) != "Cessna 152" {
		t.Errorf("Retained() = %v, %v", msg, ok)
	}
}

func TestRetainedCleared(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.PublishRetained(Topic{"sim", "snapshot"}, 1)
	conn.PublishRetained(Topic{"sim", "snapshot"}, nil)

	if _, ok := b.Retained(Topic{"sim", "snapshot"}); ok {
		t.Fatal("retained message should have been cleared")
	}
}

func TestDropOldestWhenFull(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(Topic{"log", "line"})

	for i := 0; i < 5; i++ {
		conn.Publish(&Message{Topic: Topic{"log", "line"}, Payload: i})
	}

	// Queue length is 2; the two newest survive.
	got := []int{}
	for {
		select {
		case m := <-sub.Channel():
			got = append(got, m.Payload.(int))
			continue
		case <-time.After(50 * time.Millisecond):
		}
		break
	}
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("expected [3 4], got %v", got)
	}
}

func TestUnsubscribePrunes(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(Topic{"a", "b", "c"})
	sub.Unsubscribe()

	// Non-retained publish into the pruned branch must not panic or deliver.
	conn.Publish(&Message{Topic: Topic{"a", "b", "c"}, Payload: "x"})

	if _, ok := <-sub.Channel(); ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
}

func TestDisconnectClosesAll(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	s1 := conn.Subscribe(Topic{"x"})
	s2 := conn.Subscribe(Topic{"y"})
	conn.Disconnect()

	if _, ok := <-s1.Channel(); ok {
		t.Error("s1 should be closed")
	}
	if _, ok := <-s2.Channel(); ok {
		t.Error("s2 should be closed")
	}
}
