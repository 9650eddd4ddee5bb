// Package watchlist holds the user's tracked symbols.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

var DefaultSymbols = []string{"bitcoin", "ethereum", "MSFT"}

var (
	ErrMalformedSymbol = errors.New("symbol is neither a crypto id nor an equity ticker")
	ErrDuplicateSymbol = errors.New("symbol already on watchlist")
	ErrUnknownSymbol   = errors.New("asset not found")
)

// Prober asks a price source whether a symbol exists.
type Prober interface {
	Exists(ctx context.Context, symbol string, class models.AssetClass) (bool, error)
}

type Watchlist struct {
	mu      sync.RWMutex
	symbols []string
}

// New builds a watchlist from symbols, dropping duplicates and malformed entries.
func New(symbols []string) *Watchlist {
	w := &Watchlist{}
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if models.Classify(s) == models.AssetUnknown || w.contains(s) {
			continue
		}
		w.symbols = append(w.symbols, s)
	}
	return w
}

// Add validates raw and appends it. Nothing changes on error.
func (w *Watchlist) Add(ctx context.Context, raw string, prober Prober) (string, error) {
	symbol := strings.TrimSpace(raw)
	class := models.Classify(symbol)
	if class == models.AssetUnknown {
		return "", fmt.Errorf("%w: %q", ErrMalformedSymbol, raw)
	}
	if w.Contains(symbol) {
		return "", fmt.Errorf("%w: %s", ErrDuplicateSymbol, symbol)
	}

	ok, err := prober.Exists(ctx, symbol, class)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnknownSymbol, symbol, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	// Another Add may have won while the probe was out
	if w.contains(symbol) {
		return "", fmt.Errorf("%w: %s", ErrDuplicateSymbol, symbol)
	}
	w.symbols = append(w.symbols, symbol)
	return symbol, nil
}

// Remove reports whether symbol was present.
func (w *Watchlist) Remove(symbol string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.symbols {
		if s == symbol {
			w.symbols = append(w.symbols[:i:i], w.symbols[i+1:]...)
			return true
		}
	}
	return false
}

func (w *Watchlist) Contains(symbol string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.contains(symbol)
}

func (w *Watchlist) Symbols() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.symbols))
	copy(out, w.symbols)
	return out
}

func (w *Watchlist) contains(symbol string) bool {
	for _, s := range w.symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
