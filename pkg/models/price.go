package models

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNoPrice is returned when a quote carries no usable price.
var ErrNoPrice = errors.New("quote has no price")

// CryptoQuote is one coin's entry in the simple-price response and in the
// broadcast snapshot.
type CryptoQuote struct {
	USD          float64  `json:"usd"`
	USD24hChange *float64 `json:"usd_24h_change"` // null when the provider has no 24h data
}

// GlobalQuote mirrors the equity provider's quote object. Numeric fields stay
// strings because that is how the provider sends them.
type GlobalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open,omitempty"`
	High             string `json:"03. high,omitempty"`
	Low              string `json:"04. low,omitempty"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume,omitempty"`
	LatestTradingDay string `json:"07. latest trading day,omitempty"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change,omitempty"`
	ChangePercent    string `json:"10. change percent,omitempty"`
}

// PriceValue parses the "05. price" field.
func (q GlobalQuote) PriceValue() (float64, error) {
	s := strings.TrimSpace(q.Price)
	if s == "" {
		return 0, ErrNoPrice
	}
	return strconv.ParseFloat(s, 64)
}

// PreviousCloseValue parses "08. previous close"; a missing or malformed value is 0.
func (q GlobalQuote) PreviousCloseValue() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(q.PreviousClose), 64)
	if err != nil {
		return 0
	}
	return v
}

// StockQuote is the per-symbol envelope broadcast in a snapshot and returned
// by the quote proxy. Synthetic is set when the quote was generated locally
// because no provider credential is configured.
type StockQuote struct {
	GlobalQuote GlobalQuote `json:"Global Quote"`
	Synthetic   bool        `json:"synthetic,omitempty"`
}

// PriceSnapshot is one broadcast unit. TS is unix milliseconds.
type PriceSnapshot struct {
	TS     int64                  `json:"ts"`
	Crypto map[string]CryptoQuote `json:"crypto"`
	Stocks map[string]StockQuote  `json:"stocks"`
}

// MarketChart is the historical market-chart response: each row is
// [unix ms, value].
type MarketChart struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}
