package watchlist_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/watchlist"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

type fakeProber struct {
	known map[string]models.AssetClass
	err   error
	calls int
}

func (f *fakeProber) Exists(ctx context.Context, symbol string, class models.AssetClass) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	c, ok := f.known[symbol]
	return ok && c == class, nil
}

func newProber() *fakeProber {
	return &fakeProber{known: map[string]models.AssetClass{
		"solana": models.AssetCrypto,
		"AAPL":   models.AssetStock,
		"BRK.B":  models.AssetStock,
	}}
}

func TestNew_DropsDuplicatesAndMalformed(t *testing.T) {
	w := watchlist.New([]string{"bitcoin", "bitcoin", "Mixed", " MSFT "})
	assert.Equal(t, []string{"bitcoin", "MSFT"}, w.Symbols())
}

func TestAdd(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		wantErr error
		want    string
	}{
		{"crypto id", " solana ", nil, "solana"},
		{"ticker with dot", "BRK.B", nil, "BRK.B"},
		{"ticker", "AAPL", nil, "AAPL"},
		{"mixed case", "Solana", watchlist.ErrMalformedSymbol, ""},
		{"empty", "   ", watchlist.ErrMalformedSymbol, ""},
		{"duplicate", "bitcoin", watchlist.ErrDuplicateSymbol, ""},
		{"unknown", "notacoin", watchlist.ErrUnknownSymbol, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := watchlist.New(watchlist.DefaultSymbols)
			before := w.Symbols()

			got, err := w.Add(context.Background(), tc.raw, newProber())
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, before, w.Symbols(), "rejected add must not mutate")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, append(before, tc.want), w.Symbols())
		})
	}
}

func TestAdd_ProbeFailureRejects(t *testing.T) {
	w := watchlist.New(nil)
	p := newProber()
	p.err = errors.New("gateway down")

	_, err := w.Add(context.Background(), "solana", p)
	require.ErrorIs(t, err, watchlist.ErrUnknownSymbol)
	assert.Empty(t, w.Symbols())
}

func TestAdd_MalformedSkipsProbe(t *testing.T) {
	w := watchlist.New(nil)
	p := newProber()

	_, err := w.Add(context.Background(), "not valid!", p)
	require.ErrorIs(t, err, watchlist.ErrMalformedSymbol)
	assert.Zero(t, p.calls)
}

func TestRemove(t *testing.T) {
	w := watchlist.New([]string{"bitcoin", "ethereum", "MSFT"})

	assert.True(t, w.Remove("ethereum"))
	assert.False(t, w.Remove("ethereum"))
	assert.Equal(t, []string{"bitcoin", "MSFT"}, w.Symbols())
}
