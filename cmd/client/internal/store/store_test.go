package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/portfolio"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/store"
)

func TestFileKV_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	kv, err := store.OpenFileKV(path)
	require.NoError(t, err)
	_, ok, err := kv.Get(ctx, "watchlist")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "watchlist", []byte(`["bitcoin"]`)))

	reopened, err := store.OpenFileKV(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "watchlist")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `["bitcoin"]`, string(v))
}

func TestFileKV_RejectsNonJSON(t *testing.T) {
	kv, err := store.OpenFileKV(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	assert.Error(t, kv.Set(context.Background(), "virtualCash", []byte("not json")))
}

func TestFileKV_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := store.OpenFileKV(path)
	assert.Error(t, err)
}

func TestRedisKV_PrefixedAndPersistent(t *testing.T) {
	mr := miniredis.RunT(t)
	kv := store.NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer kv.Close()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "virtualCash")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "virtualCash", []byte(`"100000"`)))
	assert.True(t, mr.Exists("portfolio:virtualCash"))

	mr.FastForward(24 * time.Hour)
	v, ok, err := kv.Get(ctx, "virtualCash")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"100000"`, string(v))
}

func TestStore_RoundTripsEveryKey(t *testing.T) {
	kv, err := store.OpenFileKV(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	s := store.New(kv)
	ctx := context.Background()

	ledger := portfolio.NewLedger(portfolio.State{Cash: decimal.NewFromInt(1000)})
	_, err = ledger.Execute("MSFT", portfolio.Buy, decimal.NewFromInt(2), decimal.NewFromInt(100))
	require.NoError(t, err)
	state := ledger.Snapshot()

	require.NoError(t, s.SaveWatchlist(ctx, []string{"bitcoin", "MSFT"}))
	require.NoError(t, s.SaveLedger(ctx, state))
	require.NoError(t, s.SaveHistory(ctx, []portfolio.ValuePoint{{Timestamp: 60000, Value: decimal.NewFromInt(1000)}}))

	watch, ok, err := s.LoadWatchlist(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"bitcoin", "MSFT"}, watch)

	holdings, ok, err := s.LoadHoldings(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, holdings, 1)
	assert.True(t, holdings[0].AvgPrice.Equal(decimal.NewFromInt(100)))

	txs, _, err := s.LoadTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, state.Transactions[0].ID, txs[0].ID)

	cash, ok, err := s.LoadCash(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cash.Equal(decimal.NewFromInt(800)))

	history, _, err := s.LoadHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(60000), history[0].Timestamp)
}

func TestStore_MissingKeysAreIndependent(t *testing.T) {
	kv, err := store.OpenFileKV(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	s := store.New(kv)
	ctx := context.Background()

	require.NoError(t, s.SaveCash(ctx, decimal.NewFromInt(5)))

	_, ok, err := s.LoadWatchlist(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.LoadCash(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_SaveLedgerFailureWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	require.NoError(t, os.Mkdir(dir, 0o700))
	kv, err := store.OpenFileKV(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	s := store.New(kv)
	ctx := context.Background()
	require.NoError(t, s.SaveCash(ctx, decimal.NewFromInt(100)))

	// the file can no longer be replaced
	require.NoError(t, os.RemoveAll(dir))
	ledger := portfolio.NewLedger(portfolio.State{Cash: decimal.NewFromInt(100)})
	_, err = ledger.Execute("MSFT", portfolio.Buy, decimal.NewFromInt(1), decimal.NewFromInt(40))
	require.NoError(t, err)

	require.Error(t, s.SaveLedger(ctx, ledger.Snapshot()))

	cash, ok, err := s.LoadCash(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cash.Equal(decimal.NewFromInt(100)), "cash rolled back, got %s", cash)
	_, ok, err = s.LoadHoldings(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.LoadTransactions(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisKV_SaveLedgerWritesAllKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	kv := store.NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer kv.Close()
	s := store.New(kv)
	ctx := context.Background()

	ledger := portfolio.NewLedger(portfolio.State{Cash: decimal.NewFromInt(100)})
	_, err := ledger.Execute("bitcoin", portfolio.Buy, decimal.NewFromInt(1), decimal.NewFromInt(40))
	require.NoError(t, err)
	require.NoError(t, s.SaveLedger(ctx, ledger.Snapshot()))

	assert.True(t, mr.Exists("portfolio:portfolio"))
	assert.True(t, mr.Exists("portfolio:transactions"))
	cash, ok, err := s.LoadCash(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cash.Equal(decimal.NewFromInt(60)))
}
