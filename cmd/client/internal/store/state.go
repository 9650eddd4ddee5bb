package store

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/portfolio"
)

const (
	KeyWatchlist        = "watchlist"
	KeyPortfolio        = "portfolio"
	KeyTransactions     = "transactions"
	KeyVirtualCash      = "virtualCash"
	KeyPortfolioHistory = "portfolioHistory"
)

// Store reads and writes each piece of client state under its own key, so
// every piece loads and saves independently.
type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) LoadWatchlist(ctx context.Context) ([]string, bool, error) {
	var v []string
	ok, err := load(ctx, s.kv, KeyWatchlist, &v)
	return v, ok, err
}

func (s *Store) SaveWatchlist(ctx context.Context, symbols []string) error {
	return save(ctx, s.kv, KeyWatchlist, symbols)
}

func (s *Store) LoadHoldings(ctx context.Context) ([]portfolio.Holding, bool, error) {
	var v []portfolio.Holding
	ok, err := load(ctx, s.kv, KeyPortfolio, &v)
	return v, ok, err
}

func (s *Store) SaveHoldings(ctx context.Context, holdings []portfolio.Holding) error {
	return save(ctx, s.kv, KeyPortfolio, holdings)
}

func (s *Store) LoadTransactions(ctx context.Context) ([]portfolio.Transaction, bool, error) {
	var v []portfolio.Transaction
	ok, err := load(ctx, s.kv, KeyTransactions, &v)
	return v, ok, err
}

func (s *Store) SaveTransactions(ctx context.Context, txs []portfolio.Transaction) error {
	return save(ctx, s.kv, KeyTransactions, txs)
}

func (s *Store) LoadCash(ctx context.Context) (decimal.Decimal, bool, error) {
	var v decimal.Decimal
	ok, err := load(ctx, s.kv, KeyVirtualCash, &v)
	return v, ok, err
}

func (s *Store) SaveCash(ctx context.Context, cash decimal.Decimal) error {
	return save(ctx, s.kv, KeyVirtualCash, cash)
}

func (s *Store) LoadHistory(ctx context.Context) ([]portfolio.ValuePoint, bool, error) {
	var v []portfolio.ValuePoint
	ok, err := load(ctx, s.kv, KeyPortfolioHistory, &v)
	return v, ok, err
}

func (s *Store) SaveHistory(ctx context.Context, points []portfolio.ValuePoint) error {
	return save(ctx, s.kv, KeyPortfolioHistory, points)
}

// SaveLedger writes the three pieces a trade changes in one SetMany, so the
// persisted holdings, transactions and cash always agree.
func (s *Store) SaveLedger(ctx context.Context, st portfolio.State) error {
	entries := make(map[string][]byte, 3)
	for key, v := range map[string]interface{}{
		KeyPortfolio:    st.Holdings,
		KeyTransactions: st.Transactions,
		KeyVirtualCash:  st.Cash,
	} {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		entries[key] = raw
	}
	return s.kv.SetMany(ctx, entries)
}

func load(ctx context.Context, kv KV, key string, out interface{}) (bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func save(ctx context.Context, kv KV, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, raw)
}
