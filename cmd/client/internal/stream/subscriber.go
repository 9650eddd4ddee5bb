// Package stream keeps a push-channel subscription open and hands every
// snapshot to a callback.
package stream

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

// MinReconnectDelay is the shortest pause between connection attempts.
const MinReconnectDelay = time.Second

type Handler func(models.PriceSnapshot)

type Subscriber struct {
	url       string
	delay     time.Duration
	dialer    *websocket.Dialer
	logger    *zap.Logger
	connected atomic.Bool
}

func NewSubscriber(url string, delay time.Duration, logger *zap.Logger) *Subscriber {
	if delay < MinReconnectDelay {
		delay = MinReconnectDelay
	}
	return &Subscriber{
		url:    url,
		delay:  delay,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
	}
}

func (s *Subscriber) Connected() bool { return s.connected.Load() }

// Run delivers snapshots to handle until ctx is cancelled, reconnecting
// after every failure. Handler calls are sequential.
func (s *Subscriber) Run(ctx context.Context, handle Handler) error {
	for {
		if err := s.session(ctx, handle); err != nil && ctx.Err() == nil {
			s.logger.Warn("Stream disconnected", zap.String("url", s.url), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
	}
}

func (s *Subscriber) session(ctx context.Context, handle Handler) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.connected.Store(true)
	defer s.connected.Store(false)
	s.logger.Info("Stream connected", zap.String("url", s.url))

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var snap models.PriceSnapshot
		if err := json.Unmarshal(msg, &snap); err != nil {
			s.logger.Warn("Ignoring malformed snapshot", zap.Error(err))
			continue
		}
		handle(snap)
	}
}
