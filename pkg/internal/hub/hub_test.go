package hub_test

import (
	"sync"
	"testing"
	"time"

	"github.com/yeisme/clipvault/pkg/internal/hub"
	"github.com/yeisme/clipvault/pkg/internal/types"
)

func note(id uint) hub.Notification {
	return hub.Notification{Event: types.EventNewItem, Data: types.ItemEventData{ID: id}}
}

func idOf(t *testing.T, n hub.Notification) uint {
	t.Helper()

	data, ok := n.Data.(types.ItemEventData)
	if !ok {
		t.Fatalf("unexpected data %T", n.Data)
	}

	return data.ID
}

func receive(t *testing.T, s *hub.Subscription) hub.Notification {
	t.Helper()

	select {
	case n, ok := <-s.C():
		if !ok {
			t.Fatal("subscription closed")
		}

		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return hub.Notification{}
	}
}

func waitDone(t *testing.T, s *hub.Subscription) {
	t.Helper()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber was not evicted")
	}

	// C 在 Done 之后关闭
	deadline := time.After(2 * time.Second)

	for {
		select {
		case _, ok := <-s.C():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("C was not closed after eviction")
		}
	}
}

func TestPublishFIFO(t *testing.T) {
	h := hub.New(hub.Options{BufferSize: 128, SendTimeout: time.Second})
	defer h.Close()

	s := h.Subscribe()

	if s.ID() == "" || len(s.ID()) != 26 {
		t.Fatalf("id = %q, want a ULID", s.ID())
	}

	for i := uint(1); i <= 100; i++ {
		h.Publish(note(i))
	}

	for i := uint(1); i <= 100; i++ {
		if got := idOf(t, receive(t, s)); got != i {
			t.Fatalf("message %d arrived as %d", i, got)
		}
	}
}

func TestFullInboxEvicts(t *testing.T) {
	h := hub.New(hub.Options{BufferSize: 2, SendTimeout: time.Minute})
	defer h.Close()

	stuck := h.Subscribe()

	start := time.Now()

	for i := uint(1); i <= 50; i++ {
		h.Publish(note(i))
	}

	if time.Since(start) > time.Second {
		t.Fatal("publish blocked on a slow subscriber")
	}

	waitDone(t, stuck)

	if h.Len() != 0 {
		t.Fatalf("subscribers = %d, want 0", h.Len())
	}
}

func TestSendDeadlineEvicts(t *testing.T) {
	h := hub.New(hub.Options{BufferSize: 16, SendTimeout: 20 * time.Millisecond})
	defer h.Close()

	s := h.Subscribe()
	h.Publish(note(1))

	waitDone(t, s)
}

func TestCloseIsolation(t *testing.T) {
	h := hub.New(hub.Options{BufferSize: 8, SendTimeout: time.Second})
	defer h.Close()

	a := h.Subscribe()
	b := h.Subscribe()

	a.Close()
	a.Close()

	h.Publish(note(7))

	if got := idOf(t, receive(t, b)); got != 7 {
		t.Fatalf("b got %d", got)
	}

	waitDone(t, a)

	if h.Len() != 1 {
		t.Fatalf("subscribers = %d, want 1", h.Len())
	}
}

func TestEvictionDoesNotAffectOthers(t *testing.T) {
	h := hub.New(hub.Options{BufferSize: 4, SendTimeout: 30 * time.Millisecond})
	defer h.Close()

	slow := h.Subscribe()
	fast := h.Subscribe()

	got := make(chan uint, 3)

	go func() {
		for n := range fast.C() {
			got <- n.Data.(types.ItemEventData).ID
		}
	}()

	for i := uint(1); i <= 3; i++ {
		h.Publish(note(i))
	}

	waitDone(t, slow)

	for i := uint(1); i <= 3; i++ {
		select {
		case id := <-got:
			if id != i {
				t.Fatalf("fast subscriber got %d, want %d", id, i)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("fast subscriber starved")
		}
	}
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	h := hub.New(hub.Options{BufferSize: 4, SendTimeout: 10 * time.Millisecond})

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 50 {
				s := h.Subscribe()
				s.Close()
			}
		}()
	}

	for i := range uint(200) {
		h.Publish(note(i))
	}

	wg.Wait()
	h.Close()

	if h.Len() != 0 {
		t.Fatalf("subscribers after close = %d", h.Len())
	}

	late := h.Subscribe()
	waitDone(t, late)
}
