package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

const alphaVantageProvider = "alphavantage"

// AlphaVantage fetches single equity quotes.
type AlphaVantage struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewAlphaVantage(baseURL, apiKey string, client *http.Client) *AlphaVantage {
	return &AlphaVantage{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (a *AlphaVantage) HasCredential() bool { return a.apiKey != "" }

// notice is how the provider reports rate limits and bad requests with a 200.
type notice struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// GlobalQuote fetches one symbol's quote. Without a key no request is made
// and ErrMissingCredential is returned.
func (a *AlphaVantage) GlobalQuote(ctx context.Context, symbol string) ([]byte, error) {
	if !a.HasCredential() {
		return nil, ErrMissingCredential
	}

	q := url.Values{}
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", symbol)
	q.Set("apikey", a.apiKey)

	body, err := get(ctx, a.client, alphaVantageProvider, a.baseURL+"/query?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var n notice
	if err := json.Unmarshal(body, &n); err == nil {
		for _, msg := range []string{n.ErrorMessage, n.Note, n.Information} {
			if msg != "" {
				return nil, &Error{Provider: alphaVantageProvider, StatusCode: http.StatusOK, Err: errors.New(msg)}
			}
		}
	}

	return body, nil
}

// DecodeGlobalQuote parses a quote body and checks it carries a price.
func DecodeGlobalQuote(raw []byte) (models.StockQuote, error) {
	var q models.StockQuote
	if err := json.Unmarshal(raw, &q); err != nil {
		return models.StockQuote{}, fmt.Errorf("decode global quote: %w", err)
	}
	if _, err := q.GlobalQuote.PriceValue(); err != nil {
		return models.StockQuote{}, fmt.Errorf("%w: %v", ErrNoQuote, err)
	}
	return q, nil
}
