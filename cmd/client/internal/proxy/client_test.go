package proxy_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/proxy"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

func startGateway(t *testing.T) *proxy.Client {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/crypto-price", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") == "bitcoin" {
			w.Write([]byte(`{"bitcoin":{"usd":50000,"usd_24h_change":2.5}}`))
			return
		}
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/stock-quote", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "MSFT":
			w.Write([]byte(`{"Global Quote":{"01. symbol":"MSFT","05. price":"410.50"}}`))
		case "DOWN":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":"AlphaVantage fetch failed","kind":"upstream_unavailable"}`))
		default:
			w.Write([]byte(`{"Global Quote":{}}`))
		}
	})
	mux.HandleFunc("/api/crypto-history", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":[[1700000000000,50000]],"market_caps":[],"total_volumes":[]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return proxy.NewClient(server.URL+"/", server.Client())
}

func TestClient_Exists(t *testing.T) {
	c := startGateway(t)
	ctx := context.Background()

	testCases := []struct {
		symbol string
		class  models.AssetClass
		want   bool
	}{
		{"bitcoin", models.AssetCrypto, true},
		{"notacoin", models.AssetCrypto, false},
		{"MSFT", models.AssetStock, true},
		{"ZZZZ", models.AssetStock, false},
		{"Mixed", models.AssetUnknown, false},
	}
	for _, tc := range testCases {
		got, err := c.Exists(ctx, tc.symbol, tc.class)
		require.NoError(t, err, tc.symbol)
		assert.Equal(t, tc.want, got, tc.symbol)
	}
}

func TestClient_ErrorBody(t *testing.T) {
	c := startGateway(t)

	_, err := c.StockQuote(context.Background(), "DOWN")

	var pe *proxy.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadGateway, pe.StatusCode)
	assert.Equal(t, "upstream_unavailable", pe.Kind)
}

func TestClient_CryptoHistory(t *testing.T) {
	c := startGateway(t)

	chart, err := c.CryptoHistory(context.Background(), "bitcoin", "1")
	require.NoError(t, err)
	require.Len(t, chart.Prices, 1)
	assert.Equal(t, 50000.0, chart.Prices[0][1])
}
