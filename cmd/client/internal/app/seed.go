package app

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/watchlist"
)

// Seed is the watchlist file used when no watchlist has been persisted.
type Seed struct {
	Symbols []string `yaml:"symbols"`
}

// LoadSeed reads path. A missing file or empty list yields the default symbols.
func LoadSeed(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return watchlist.DefaultSymbols, nil
	}
	if err != nil {
		return nil, err
	}

	var s Seed
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(s.Symbols) == 0 {
		return watchlist.DefaultSymbols, nil
	}
	return s.Symbols, nil
}
