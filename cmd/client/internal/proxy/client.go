// Package proxy calls the gateway's request/response endpoints.
package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

const maxBody = 4 << 20

// Error is a non-2xx answer from the gateway.
type Error struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *Error) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("gateway %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("gateway %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	base string
	http *http.Client
}

func NewClient(base string, httpClient *http.Client) *Client {
	return &Client{base: strings.TrimRight(base, "/"), http: httpClient}
}

// CryptoPrices returns quotes for ids in vs; ids the provider does not know
// are absent from the result.
func (c *Client) CryptoPrices(ctx context.Context, ids []string, vs string) (map[string]models.CryptoQuote, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs", vs)

	var body map[string]map[string]*float64
	if err := c.get(ctx, "/api/crypto-price?"+q.Encode(), &body); err != nil {
		return nil, err
	}

	out := make(map[string]models.CryptoQuote, len(body))
	for id, fields := range body {
		if p := fields[vs]; p != nil {
			out[id] = models.CryptoQuote{USD: *p, USD24hChange: fields[vs+"_24h_change"]}
		}
	}
	return out, nil
}

func (c *Client) StockQuote(ctx context.Context, symbol string) (models.StockQuote, error) {
	var quote models.StockQuote
	err := c.get(ctx, "/api/stock-quote?symbol="+url.QueryEscape(symbol), &quote)
	return quote, err
}

func (c *Client) CryptoHistory(ctx context.Context, coin, days string) (models.MarketChart, error) {
	q := url.Values{}
	q.Set("coin", coin)
	q.Set("days", days)

	var chart models.MarketChart
	err := c.get(ctx, "/api/crypto-history?"+q.Encode(), &chart)
	return chart, err
}

// Exists reports whether the gateway can price symbol in its asset class.
func (c *Client) Exists(ctx context.Context, symbol string, class models.AssetClass) (bool, error) {
	switch class {
	case models.AssetCrypto:
		quotes, err := c.CryptoPrices(ctx, []string{symbol}, "usd")
		if err != nil {
			return false, err
		}
		_, ok := quotes[symbol]
		return ok, nil
	case models.AssetStock:
		quote, err := c.StockQuote(ctx, symbol)
		if err != nil {
			return false, err
		}
		_, err = quote.GlobalQuote.PriceValue()
		return err == nil, nil
	default:
		return false, nil
	}
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		_ = json.Unmarshal(body, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &Error{StatusCode: resp.StatusCode, Message: e.Error, Kind: e.Kind}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
