package hub

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientInterface is a push-channel sink. SendBytes must not block on a slow
// peer; an error means the sink is dead or saturated and will be dropped.
type ClientInterface interface {
	SendBytes(b []byte) error
	Close()
}

// Hub is the subscriber registry. Registration and removal are safe while a
// broadcast is in flight: Broadcast works on a snapshot of the set.
type Hub struct {
	clients map[string]ClientInterface
	latest  []byte

	logger *zap.Logger
	mu     sync.RWMutex
	// sendMu orders replays and broadcasts so a sink sees payloads in
	// broadcast order.
	sendMu sync.Mutex
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]ClientInterface),
		logger:  logger,
	}
}

// Register adds a sink and returns its subscriber id. The most recent
// payload, if any, is replayed so new viewers need not wait a full tick.
func (h *Hub) Register(client ClientInterface) string {
	id := uuid.NewString()

	h.sendMu.Lock()
	h.mu.Lock()
	h.clients[id] = client
	latest := h.latest
	total := len(h.clients)
	h.mu.Unlock()

	var err error
	if latest != nil {
		err = h.deliver(client, latest)
	}
	h.sendMu.Unlock()

	h.logger.Info("Subscriber connected", zap.String("id", id), zap.Int("subscribers", total))
	if err != nil {
		h.logger.Warn("Replay to new subscriber failed", zap.String("id", id), zap.Error(err))
		h.Unregister(id)
	}
	return id
}

// Unregister removes and closes a sink. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	client, ok := h.clients[id]
	delete(h.clients, id)
	total := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	client.Close()
	h.logger.Info("Subscriber disconnected", zap.String("id", id), zap.Int("subscribers", total))
}

// ForEach calls fn for every subscriber registered when it was called.
func (h *Hub) ForEach(fn func(id string, client ClientInterface)) {
	for id, client := range h.snapshot() {
		fn(id, client)
	}
}

// Broadcast sends payload to every subscriber and returns how many accepted
// it. A failing sink is removed; it never stops delivery to the others.
func (h *Hub) Broadcast(payload []byte) int {
	h.sendMu.Lock()
	h.mu.Lock()
	h.latest = payload
	h.mu.Unlock()

	delivered := 0
	var failed []string
	h.ForEach(func(id string, client ClientInterface) {
		if err := h.deliver(client, payload); err != nil {
			h.logger.Warn("Dropping subscriber after send failure", zap.String("id", id), zap.Error(err))
			failed = append(failed, id)
			return
		}
		delivered++
	})
	h.sendMu.Unlock()

	for _, id := range failed {
		h.Unregister(id)
	}
	return delivered
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unregisters every subscriber.
func (h *Hub) Close() {
	for id := range h.snapshot() {
		h.Unregister(id)
	}
}

func (h *Hub) snapshot() map[string]ClientInterface {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]ClientInterface, len(h.clients))
	for id, c := range h.clients {
		out[id] = c
	}
	return out
}

// deliver isolates one sink: a panic inside SendBytes becomes an error.
func (h *Hub) deliver(client ClientInterface, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	return client.SendBytes(payload)
}
