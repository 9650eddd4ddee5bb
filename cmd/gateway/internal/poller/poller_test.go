package poller_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/hub"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/poller"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/prices"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/repository"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/testutils"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/upstream"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

const msftQuote = `{"Global Quote":{"01. symbol":"MSFT","05. price":"410.50","08. previous close":"400.00"}}`

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	poller  *poller.Poller
	hub     *hub.Hub
	crypto  *testutils.MockCryptoGateway
	equity  *testutils.MockEquityGateway
	journal *testutils.MockJournal
	clock   *mockClock
	sink    *testutils.MockClient
}

func setup(t *testing.T, opts poller.Options) *fixture {
	t.Helper()
	f := &fixture{
		hub:     hub.NewHub(zap.NewNop()),
		crypto:  testutils.NewMockCryptoGateway(`{"bitcoin":{"usd":50000,"usd_24h_change":2.5}}`),
		equity:  testutils.NewMockEquityGateway(),
		journal: &testutils.MockJournal{},
		clock:   &mockClock{now: time.UnixMilli(1_000)},
		sink:    testutils.NewMockClient(),
	}
	f.equity.SetQuote("MSFT", msftQuote)
	f.hub.Register(f.sink)

	svc := prices.NewService(repository.NewMemoryCache(), f.crypto, f.equity,
		upstream.NewSyntheticQuotes(upstream.NewRealRand()), time.Nanosecond, zap.NewNop())
	f.poller = poller.NewPoller(zap.NewNop(), svc, f.hub, f.journal, f.clock, opts)
	return f
}

func defaultOpts() poller.Options {
	return poller.Options{
		Interval:     time.Hour,
		CryptoIDs:    []string{"bitcoin"},
		Currency:     "usd",
		StockSymbols: []string{"MSFT"},
	}
}

func TestPoller_Tick_BroadcastsSnapshot(t *testing.T) {
	f := setup(t, defaultOpts())

	snap, err := f.poller.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1_000), snap.TS)
	assert.Equal(t, 50000.0, snap.Crypto["bitcoin"].USD)
	assert.Equal(t, "410.50", snap.Stocks["MSFT"].GlobalQuote.Price)

	got := f.sink.Received()
	require.Len(t, got, 1)
	var wire models.PriceSnapshot
	require.NoError(t, json.Unmarshal([]byte(got[0]), &wire))
	assert.Equal(t, snap.TS, wire.TS)
	require.NotNil(t, wire.Crypto["bitcoin"].USD24hChange)
	assert.Equal(t, 2.5, *wire.Crypto["bitcoin"].USD24hChange)

	require.Len(t, f.journal.Snapshots, 1)
	assert.Equal(t, poller.Idle, f.poller.State())
}

func TestPoller_Tick_CryptoFailureSkipsOnlyCrypto(t *testing.T) {
	f := setup(t, defaultOpts())
	f.crypto.SetErr(&upstream.Error{Provider: "coingecko", StatusCode: 503})

	snap, err := f.poller.Tick(context.Background())
	require.NoError(t, err)

	assert.Empty(t, snap.Crypto)
	assert.Contains(t, snap.Stocks, "MSFT")
	assert.Len(t, f.sink.Received(), 1)
}

func TestPoller_Tick_BothClassesFailAbandonsTick(t *testing.T) {
	f := setup(t, defaultOpts())
	f.crypto.SetErr(&upstream.Error{Provider: "coingecko", StatusCode: 503})
	f.equity.SetErr(&upstream.Error{Provider: "alphavantage", StatusCode: 500})

	_, err := f.poller.Tick(context.Background())
	require.ErrorIs(t, err, poller.ErrNoPrices)
	assert.Empty(t, f.sink.Received(), "nothing should be broadcast")
	assert.Empty(t, f.journal.Snapshots)

	// The loop recovers on the next tick
	f.crypto.SetErr(nil)
	f.equity.SetErr(nil)
	_, err = f.poller.Tick(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.sink.Received(), 1)
}

func TestPoller_Tick_UnknownStockLeftOut(t *testing.T) {
	opts := defaultOpts()
	opts.StockSymbols = []string{"MSFT", "NOPE"}
	f := setup(t, opts)

	snap, err := f.poller.Tick(context.Background())
	require.NoError(t, err)
	assert.Contains(t, snap.Stocks, "MSFT")
	assert.NotContains(t, snap.Stocks, "NOPE")
}

func TestPoller_Tick_TimestampNeverDecreases(t *testing.T) {
	f := setup(t, defaultOpts())
	f.clock.Set(time.UnixMilli(5_000))

	first, err := f.poller.Tick(context.Background())
	require.NoError(t, err)

	f.clock.Set(time.UnixMilli(4_000))
	second, err := f.poller.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(5_000), first.TS)
	assert.GreaterOrEqual(t, second.TS, first.TS)
}

func TestPoller_Tick_OverlapIsSkipped(t *testing.T) {
	f := setup(t, defaultOpts())
	f.crypto.SetDelay(200 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := f.poller.Tick(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return f.poller.State() == poller.Fetching }, time.Second, 5*time.Millisecond)

	_, err := f.poller.Tick(context.Background())
	assert.ErrorIs(t, err, poller.ErrTickInFlight)

	require.NoError(t, <-done)
	assert.Len(t, f.sink.Received(), 1, "only the first tick should broadcast")
}

func TestPoller_Tick_JournalFailureDoesNotFailTick(t *testing.T) {
	f := setup(t, defaultOpts())
	f.journal.Err = errors.New("broker down")

	_, err := f.poller.Tick(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.sink.Received(), 1)
}

func TestPoller_Run_TicksImmediately(t *testing.T) {
	f := setup(t, defaultOpts())
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		f.poller.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return len(f.sink.Received()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", poller.Idle.String())
	assert.Equal(t, "fetching", poller.Fetching.String())
	assert.Equal(t, "broadcasting", poller.Broadcasting.String())
}
