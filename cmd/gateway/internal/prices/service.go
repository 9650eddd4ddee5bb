// Package prices resolves price data through the response cache, falling
// back to the upstream providers on a miss.
package prices

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/repository"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/upstream"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

// HistoryCurrency is the quote currency for market-chart requests.
const HistoryCurrency = "usd"

type CryptoGateway interface {
	SimplePrice(ctx context.Context, ids []string, vs string) ([]byte, error)
	MarketChart(ctx context.Context, coin, days, vs string) ([]byte, error)
}

type EquityGateway interface {
	GlobalQuote(ctx context.Context, symbol string) ([]byte, error)
}

// QuoteFallback builds a quote when the equity provider has no credential.
type QuoteFallback interface {
	Quote(symbol string) models.StockQuote
}

type Service struct {
	cache    repository.ResponseCache
	crypto   CryptoGateway
	equity   EquityGateway
	fallback QuoteFallback
	ttl      time.Duration
	logger   *zap.Logger
	group    singleflight.Group
}

func NewService(
	cache repository.ResponseCache,
	crypto CryptoGateway,
	equity EquityGateway,
	fallback QuoteFallback,
	ttl time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		cache:    cache,
		crypto:   crypto,
		equity:   equity,
		fallback: fallback,
		ttl:      ttl,
		logger:   logger,
	}
}

// CryptoKey fingerprints a batch request. The id set is deduplicated and
// sorted so that the same set always hits the same entry.
func CryptoKey(ids []string, vs string) string {
	return fmt.Sprintf("cg:%s:%s", strings.Join(normalizeIDs(ids), ","), vs)
}

func QuoteKey(symbol string) string { return "av:quote:" + symbol }

func HistoryKey(coin, days string) string { return fmt.Sprintf("cg:h:%s:%s", coin, days) }

// CryptoPrices returns the simple-price body for ids in one batched request.
func (s *Service) CryptoPrices(ctx context.Context, ids []string, vs string) ([]byte, error) {
	norm := normalizeIDs(ids)
	return s.cached(ctx, CryptoKey(norm, vs), func(ctx context.Context) ([]byte, error) {
		return s.crypto.SimplePrice(ctx, norm, vs)
	})
}

// StockQuote returns the quote body for one symbol. Without a provider
// credential the body is a synthetic quote carrying "synthetic": true.
func (s *Service) StockQuote(ctx context.Context, symbol string) ([]byte, error) {
	return s.cached(ctx, QuoteKey(symbol), func(ctx context.Context) ([]byte, error) {
		raw, err := s.equity.GlobalQuote(ctx, symbol)
		if errors.Is(err, upstream.ErrMissingCredential) {
			s.logger.Debug("Substituting synthetic quote", zap.String("symbol", symbol))
			return json.Marshal(s.fallback.Quote(symbol))
		}
		return raw, err
	})
}

// CryptoHistory returns the market-chart body for coin over days.
func (s *Service) CryptoHistory(ctx context.Context, coin, days string) ([]byte, error) {
	return s.cached(ctx, HistoryKey(coin, days), func(ctx context.Context) ([]byte, error) {
		raw, err := s.crypto.MarketChart(ctx, coin, days, HistoryCurrency)
		if err != nil {
			return nil, err
		}
		if _, err := upstream.DecodeMarketChart(raw); err != nil {
			return nil, &upstream.Error{Provider: "coingecko", Err: err}
		}
		return raw, nil
	})
}

// cached serves key from the cache or runs fetch once for all concurrent
// callers. Only successful fetches are stored. The shared fetch is detached
// from any one caller's cancellation; each caller still stops waiting when
// its own ctx ends. The HTTP client timeout bounds the fetch.
func (s *Service) cached(ctx context.Context, key string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Cache read failed, fetching upstream", zap.String("key", key), zap.Error(err))
	}
	if ok {
		s.logger.Debug("Cache hit", zap.String("key", key))
		return raw, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		// A flight that finished between our miss and DoChan has already filled the entry
		if raw, ok, _ := s.cache.Get(flightCtx, key); ok {
			return raw, nil
		}
		raw, err := fetch(flightCtx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(flightCtx, key, raw, s.ttl); err != nil {
			s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		}
		return raw, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
