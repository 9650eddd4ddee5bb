// Package upstream talks to the two public price providers: CoinGecko for
// crypto spot prices and Alpha Vantage for equity quotes.
package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable matches every provider failure: transport errors,
	// timeouts, non-2xx statuses and provider-side notices.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrMissingCredential means no Alpha Vantage key is configured. Callers
	// substitute a synthetic quote.
	ErrMissingCredential = errors.New("alphavantage api key not configured")

	// ErrNoQuote means the provider answered but the body holds no usable price.
	ErrNoQuote = errors.New("response has no usable quote")
)

// Error describes a failed provider call.
type Error struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrUnavailable }
