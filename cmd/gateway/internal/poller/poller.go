// Package poller periodically assembles a price snapshot and pushes it to
// every subscriber.
package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/upstream"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

var (
	ErrTickInFlight = errors.New("poller: previous tick still running")
	ErrNoPrices     = errors.New("poller: every asset class failed")
)

type Poller struct {
	source      PriceSource
	broadcaster Broadcaster
	publisher   Publisher
	clock       Clock
	opts        Options
	logger      *zap.Logger

	state    atomic.Int32
	inFlight atomic.Bool
	lastTS   atomic.Int64
}

// NewPoller builds a poller. publisher may be nil.
func NewPoller(logger *zap.Logger, source PriceSource, broadcaster Broadcaster, publisher Publisher, clock Clock, opts Options) *Poller {
	return &Poller{
		source:      source,
		broadcaster: broadcaster,
		publisher:   publisher,
		clock:       clock,
		opts:        opts,
		logger:      logger,
	}
}

func (p *Poller) State() State { return State(p.state.Load()) }

// Run ticks once immediately and then every Interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Poller started",
		zap.Duration("interval", p.opts.Interval),
		zap.Strings("crypto", p.opts.CryptoIDs),
		zap.Strings("stocks", p.opts.StockSymbols))

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.runTick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Poller stopped")
			return
		case <-ticker.C:
			// Tick synchronously so a slow tick delays the next one instead of overlapping it
			p.runTick(ctx)
		}
	}
}

func (p *Poller) runTick(ctx context.Context) {
	if _, err := p.Tick(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("Tick skipped", zap.Error(err))
	}
}

// Tick fetches both asset classes, broadcasts the snapshot and hands it to
// the publisher. A class that fails is left out; if both fail nothing is
// broadcast and ErrNoPrices is returned.
func (p *Poller) Tick(ctx context.Context) (models.PriceSnapshot, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return models.PriceSnapshot{}, ErrTickInFlight
	}
	defer p.inFlight.Store(false)
	defer p.state.Store(int32(Idle))

	p.state.Store(int32(Fetching))

	crypto, cryptoErr := p.fetchCrypto(ctx)
	if cryptoErr != nil {
		p.logger.Warn("Crypto prices unavailable this tick", zap.Error(cryptoErr))
	}
	stocks, stockErr := p.fetchStocks(ctx)
	if stockErr != nil {
		p.logger.Warn("Stock quotes unavailable this tick", zap.Error(stockErr))
	}
	if cryptoErr != nil && stockErr != nil {
		return models.PriceSnapshot{}, errors.Join(ErrNoPrices, cryptoErr, stockErr)
	}
	if crypto == nil {
		crypto = map[string]models.CryptoQuote{}
	}
	if stocks == nil {
		stocks = map[string]models.StockQuote{}
	}

	snap := models.PriceSnapshot{TS: p.nextTS(), Crypto: crypto, Stocks: stocks}
	payload, err := json.Marshal(snap)
	if err != nil {
		return models.PriceSnapshot{}, err
	}

	p.state.Store(int32(Broadcasting))
	delivered := p.broadcaster.Broadcast(payload)
	p.logger.Info("Snapshot broadcast",
		zap.Int64("ts", snap.TS),
		zap.Int("crypto", len(crypto)),
		zap.Int("stocks", len(stocks)),
		zap.Int("delivered", delivered))

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, snap); err != nil {
			p.logger.Warn("Failed to journal snapshot", zap.Error(err))
		}
	}
	return snap, nil
}

func (p *Poller) fetchCrypto(ctx context.Context) (map[string]models.CryptoQuote, error) {
	if len(p.opts.CryptoIDs) == 0 {
		return nil, nil
	}
	raw, err := p.source.CryptoPrices(ctx, p.opts.CryptoIDs, p.opts.Currency)
	if err != nil {
		return nil, err
	}
	return upstream.DecodeSimplePrice(raw, p.opts.Currency)
}

// fetchStocks leaves out symbols whose quote cannot be had. The class fails
// only when no configured symbol produced a quote.
func (p *Poller) fetchStocks(ctx context.Context) (map[string]models.StockQuote, error) {
	if len(p.opts.StockSymbols) == 0 {
		return nil, nil
	}
	out := make(map[string]models.StockQuote, len(p.opts.StockSymbols))
	var errs []error
	for _, symbol := range p.opts.StockSymbols {
		raw, err := p.source.StockQuote(ctx, symbol)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		quote, err := upstream.DecodeGlobalQuote(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[symbol] = quote
	}
	if len(out) == 0 {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		p.logger.Warn("Stock quote left out of snapshot", zap.Error(err))
	}
	return out, nil
}

// nextTS never goes backwards, even if the wall clock does.
func (p *Poller) nextTS() int64 {
	now := p.clock.Now().UnixMilli()
	for {
		last := p.lastTS.Load()
		ts := now
		if ts < last {
			ts = last
		}
		if p.lastTS.CompareAndSwap(last, ts) {
			return ts
		}
	}
}
