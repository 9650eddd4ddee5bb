package hub_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/hub"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/testutils"
)

func setup() *hub.Hub {
	return hub.NewHub(zap.NewNop())
}

func TestHub_RegisterReturnsUniqueIDs(t *testing.T) {
	h := setup()

	a := h.Register(testutils.NewMockClient())
	b := h.Register(testutils.NewMockClient())

	if a == "" || a == b {
		t.Errorf("Expected distinct non-empty ids, got %q and %q", a, b)
	}
	if h.Len() != 2 {
		t.Errorf("Expected 2 subscribers, got %d", h.Len())
	}
}

func TestHub_Broadcast_DeliversToAll(t *testing.T) {
	h := setup()
	clients := []*testutils.MockClient{testutils.NewMockClient(), testutils.NewMockClient(), testutils.NewMockClient()}
	for _, c := range clients {
		h.Register(c)
	}

	delivered := h.Broadcast([]byte(`{"ts":1}`))

	if delivered != 3 {
		t.Errorf("Expected 3 deliveries, got %d", delivered)
	}
	for i, c := range clients {
		if got := c.Received(); len(got) != 1 || got[0] != `{"ts":1}` {
			t.Errorf("Client %d received %v", i, got)
		}
	}
}

func TestHub_Broadcast_IsolatesFailingSink(t *testing.T) {
	h := setup()
	var clients []*testutils.MockClient
	for i := 0; i < 5; i++ {
		c := testutils.NewMockClient()
		if i == 2 {
			c.FailSend = true
		}
		clients = append(clients, c)
		h.Register(c)
	}

	delivered := h.Broadcast([]byte("payload"))

	if delivered != 4 {
		t.Errorf("Expected 4 deliveries, got %d", delivered)
	}
	for i, c := range clients {
		got := len(c.Received())
		if i == 2 {
			testutils.AssertTrue(t, got == 0, "failing sink should receive nothing")
			testutils.AssertTrue(t, c.IsClosed(), "failing sink should be closed")
			continue
		}
		testutils.AssertTrue(t, got == 1, fmt.Sprintf("client %d should receive the payload", i))
	}
	if h.Len() != 4 {
		t.Errorf("Failing sink should be removed, %d remain", h.Len())
	}
}

func TestHub_Broadcast_IsolatesPanickingSink(t *testing.T) {
	h := setup()
	bad := testutils.NewMockClient()
	bad.PanicSend = true
	good := testutils.NewMockClient()
	h.Register(bad)
	h.Register(good)

	if delivered := h.Broadcast([]byte("x")); delivered != 1 {
		t.Errorf("Expected 1 delivery, got %d", delivered)
	}
	if len(good.Received()) != 1 {
		t.Error("Healthy sink should still receive the payload")
	}
	if h.Len() != 1 {
		t.Errorf("Panicking sink should be removed, %d remain", h.Len())
	}
}

func TestHub_Unregister_ClosesAndIsIdempotent(t *testing.T) {
	h := setup()
	c := testutils.NewMockClient()
	id := h.Register(c)

	h.Unregister(id)
	h.Unregister(id)
	h.Unregister("never-registered")

	if !c.IsClosed() {
		t.Error("Unregister should close the sink")
	}
	if h.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", h.Len())
	}
	if h.Broadcast([]byte("x")) != 0 {
		t.Error("Removed sink must not be written to")
	}
}

func TestHub_Register_ReplaysLatest(t *testing.T) {
	h := setup()
	h.Broadcast([]byte("first"))
	h.Broadcast([]byte("second"))

	late := testutils.NewMockClient()
	h.Register(late)

	got := late.Received()
	if len(got) != 1 || got[0] != "second" {
		t.Errorf("Expected replay of latest payload, got %v", got)
	}
}

func TestHub_Register_ReplayNeverOvertakesBroadcast(t *testing.T) {
	h := setup()
	h.Broadcast([]byte("ts=1"))

	c := testutils.NewMockClient()
	gate := make(chan struct{})
	c.Gate = gate
	c.Entered = make(chan struct{})

	registered := make(chan struct{})
	go func() {
		defer close(registered)
		h.Register(c)
	}()
	<-c.Entered

	broadcast := make(chan struct{})
	go func() {
		defer close(broadcast)
		h.Broadcast([]byte("ts=2"))
	}()
	// give the broadcast time to reach the sink if it is not held back
	time.Sleep(50 * time.Millisecond)
	close(gate)
	<-registered
	<-broadcast

	got := c.Received()
	if len(got) != 2 || got[0] != "ts=1" || got[1] != "ts=2" {
		t.Errorf("Expected replay then broadcast [ts=1 ts=2], got %v", got)
	}
}

func TestHub_Close(t *testing.T) {
	h := setup()
	a, b := testutils.NewMockClient(), testutils.NewMockClient()
	h.Register(a)
	h.Register(b)

	h.Close()

	if !a.IsClosed() || !b.IsClosed() || h.Len() != 0 {
		t.Error("Close should close and remove every subscriber")
	}
}

func TestHub_RaceCondition(t *testing.T) {
	// Run with `go test -race ./...`
	h := setup()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			id := h.Register(testutils.NewMockClient())
			h.Unregister(id)
		}()
		go func() {
			defer wg.Done()
			h.Broadcast([]byte("tick"))
		}()
		go func() {
			defer wg.Done()
			h.ForEach(func(string, hub.ClientInterface) {})
		}()
	}
	wg.Wait()
}
