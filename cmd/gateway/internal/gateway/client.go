// Package gateway adapts push-channel connections to registry sinks.
package gateway

import (
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/hub"
)

const (
	maxMessageSize = 512 * 1024
	sendBuffer     = 16
)

var (
	ErrSinkClosed = errors.New("sink closed")
	ErrBufferFull = errors.New("sink buffer full")
)

// Registry is the part of the hub a transport needs.
type Registry interface {
	Register(client hub.ClientInterface) string
	Unregister(id string)
}

var _ hub.ClientInterface = (*ClientAdapter)(nil)

// ClientAdapter is a WebSocket sink. Writes happen on its own goroutine, so
// SendBytes only enqueues.
type ClientAdapter struct {
	conn   net.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewClient(conn net.Conn, logger *zap.Logger) *ClientAdapter {
	return &ClientAdapter{
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		logger:     logger,
		writeWait:  5 * time.Second,
		pongWait:   60 * time.Second,
		pingPeriod: 50 * time.Second,
	}
}

// ServeWS upgrades the request and registers the connection.
func ServeWS(reg Registry, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}
		NewClient(conn, logger).Start(reg)
	}
}

// Start registers the sink and runs its pumps until the peer goes away or
// the registry drops it.
func (c *ClientAdapter) Start(reg Registry) {
	id := reg.Register(c)
	go c.writePump()
	go c.readPump(reg, id)
}

// Close stops the writer, which sends a close frame and closes the socket.
func (c *ClientAdapter) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *ClientAdapter) SendBytes(b []byte) error {
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

// readPump only watches for close and keeps the read deadline fresh; data
// frames from the peer carry no meaning and are discarded.
func (c *ClientAdapter) readPump(reg Registry, id string) {
	defer reg.Unregister(id)

	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

	for {
		header, err := ws.ReadHeader(c.conn)
		if err != nil {
			return
		}
		if header.Length > int64(maxMessageSize) {
			c.logger.Warn("Frame too big", zap.Int64("size", header.Length))
			return
		}
		if _, err := io.CopyN(io.Discard, c.conn, header.Length); err != nil {
			return
		}
		if header.OpCode == ws.OpClose {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	}
}

func (c *ClientAdapter) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			c.conn.Write(ws.CompiledClose)
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerText(c.conn, msg); err != nil {
				c.logger.Debug("WebSocket write failed", zap.Error(err))
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPing, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
