package portfolio

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/ring"
)

// DefaultHistoryLimit keeps one day of minute samples.
const DefaultHistoryLimit = 1440

type ValuePoint struct {
	Timestamp int64           `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// History is the bounded record of total portfolio value over time.
type History struct {
	mu  sync.RWMutex
	buf *ring.Buffer[ValuePoint]
}

func NewHistory(limit int, points []ValuePoint) *History {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	h := &History{buf: ring.New[ValuePoint](limit)}
	for _, p := range points {
		h.buf.Push(p)
	}
	return h
}

func (h *History) Record(ts int64, value decimal.Decimal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.Push(ValuePoint{Timestamp: ts, Value: value})
}

func (h *History) Points() []ValuePoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.buf.Items()
}
