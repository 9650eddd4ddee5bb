package gateway

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/hub"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/protocol"
)

const DefaultKeepAlive = 15 * time.Second

var _ hub.ClientInterface = (*SSEClient)(nil)

// SSEClient is an event-stream sink; its handler goroutine does the writing.
type SSEClient struct {
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewSSEClient() *SSEClient {
	return &SSEClient{
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *SSEClient) SendBytes(b []byte) error {
	select {
	case <-c.done:
		return ErrSinkClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrBufferFull
	}
}

func (c *SSEClient) Close() {
	c.once.Do(func() { close(c.done) })
}

// ServeSSE streams every broadcast payload as a server-sent event until the
// request ends or the registry drops the sink.
func ServeSSE(reg Registry, logger *zap.Logger, keepAlive time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		h := w.Header()
		h.Set("Content-Type", protocol.ContentTypeEventStream)
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		client := NewSSEClient()
		id := reg.Register(client)
		defer reg.Unregister(id)

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			var frame []byte
			select {
			case <-r.Context().Done():
				return
			case <-client.done:
				return
			case msg := <-client.send:
				frame = protocol.SSEFrame(msg)
			case <-ticker.C:
				frame = protocol.SSEKeepAlive()
			}
			if _, err := w.Write(frame); err != nil {
				logger.Debug("Event stream write failed", zap.String("id", id), zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}
