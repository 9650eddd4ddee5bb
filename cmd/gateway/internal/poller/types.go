package poller

import (
	"context"
	"time"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// PriceSource resolves raw provider bodies, normally through the cache.
type PriceSource interface {
	CryptoPrices(ctx context.Context, ids []string, vs string) ([]byte, error)
	StockQuote(ctx context.Context, symbol string) ([]byte, error)
}

type Broadcaster interface {
	Broadcast(payload []byte) int
}

// Publisher receives every broadcast snapshot. Optional.
type Publisher interface {
	Publish(ctx context.Context, snap models.PriceSnapshot) error
}

type State int32

const (
	Idle State = iota
	Fetching
	Broadcasting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Broadcasting:
		return "broadcasting"
	default:
		return "unknown"
	}
}

type Options struct {
	Interval     time.Duration
	CryptoIDs    []string
	Currency     string
	StockSymbols []string
}
