// Package reconciler folds pushed price snapshots into per-symbol tickers and
// bounded price series for the symbols on the watchlist.
package reconciler

import (
	"strings"
	"sync"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/ring"
)

// DefaultSeriesLimit is how many points each series keeps.
const DefaultSeriesLimit = 400

type SeriesPoint struct {
	X int64   `json:"x"`
	Y float64 `json:"y"`
}

// Ticker is the current price of one symbol. ChangePercent is nil when it
// cannot be derived.
type Ticker struct {
	Price         float64  `json:"price"`
	ChangePercent *float64 `json:"changePercent"`
}

type Reconciler struct {
	mu      sync.RWMutex
	limit   int
	watch   []string
	series  map[string]*ring.Buffer[SeriesPoint]
	tickers map[string]Ticker

	applied bool
	lastTS  int64
}

func New(limit int) *Reconciler {
	if limit < 1 {
		limit = DefaultSeriesLimit
	}
	return &Reconciler{
		limit:   limit,
		series:  make(map[string]*ring.Buffer[SeriesPoint]),
		tickers: make(map[string]Ticker),
	}
}

// SetWatchlist replaces the tracked symbols. Symbols no longer tracked lose
// their series and ticker at once; new ones start filling on the next Apply.
func (r *Reconciler) SetWatchlist(symbols []string) {
	keep := make(map[string]struct{}, len(symbols))
	watch := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, dup := keep[s]; dup {
			continue
		}
		keep[s] = struct{}{}
		watch = append(watch, s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.watch = watch
	for s := range r.series {
		if _, ok := keep[s]; !ok {
			delete(r.series, s)
		}
	}
	for s := range r.tickers {
		if _, ok := keep[s]; !ok {
			delete(r.tickers, s)
		}
	}
}

// Apply reconciles one snapshot. The ticker map is replaced, not merged:
// a watched symbol without data in snap has no ticker afterwards, though
// its series is kept. A snapshot not newer than the last applied one is
// dropped, so a replay after reconnect never adds a point twice.
func (r *Reconciler) Apply(snap models.PriceSnapshot) map[string]Ticker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.applied && snap.TS <= r.lastTS {
		return copyTickers(r.tickers)
	}
	r.applied = true
	r.lastTS = snap.TS

	next := make(map[string]Ticker, len(r.watch))
	for _, symbol := range r.watch {
		t, ok := tickerFor(symbol, snap)
		if !ok {
			continue
		}
		next[symbol] = t

		buf, ok := r.series[symbol]
		if !ok {
			buf = ring.New[SeriesPoint](r.limit)
			r.series[symbol] = buf
		}
		buf.Push(SeriesPoint{X: snap.TS, Y: t.Price})
	}
	r.tickers = next
	return copyTickers(next)
}

func (r *Reconciler) Tickers() map[string]Ticker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyTickers(r.tickers)
}

func (r *Reconciler) Ticker(symbol string) (Ticker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickers[symbol]
	return t, ok
}

// Series returns symbol's points oldest first.
func (r *Reconciler) Series(symbol string) []SeriesPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	buf, ok := r.series[symbol]
	if !ok {
		return nil
	}
	return buf.Items()
}

func (r *Reconciler) Watchlist() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.watch))
	copy(out, r.watch)
	return out
}

func tickerFor(symbol string, snap models.PriceSnapshot) (Ticker, bool) {
	if q, ok := snap.Crypto[strings.ToLower(symbol)]; ok {
		return Ticker{Price: q.USD, ChangePercent: q.USD24hChange}, true
	}

	q, ok := snap.Stocks[symbol]
	if !ok {
		return Ticker{}, false
	}
	price, err := q.GlobalQuote.PriceValue()
	if err != nil {
		return Ticker{}, false
	}
	return Ticker{Price: price, ChangePercent: ChangePercent(price, q.GlobalQuote.PreviousCloseValue())}, true
}

// ChangePercent is the move from prev to price in percent, or nil when
// prev is zero.
func ChangePercent(price, prev float64) *float64 {
	if prev == 0 {
		return nil
	}
	c := (price - prev) / prev * 100
	return &c
}

func copyTickers(in map[string]Ticker) map[string]Ticker {
	out := make(map[string]Ticker, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
