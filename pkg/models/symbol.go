package models

import "regexp"

// AssetClass tells which gateway serves a symbol.
type AssetClass string

const (
	AssetUnknown AssetClass = ""
	AssetCrypto  AssetClass = "crypto"
	AssetStock   AssetClass = "stock"
)

var (
	cryptoSymbol = regexp.MustCompile(`^[a-z0-9\-]+$`)
	stockSymbol  = regexp.MustCompile(`^[A-Z.]+$`)
)

// Classify derives the asset class from the symbol's character set alone:
// lowercase ids are crypto, uppercase tickers are equities.
func Classify(symbol string) AssetClass {
	switch {
	case cryptoSymbol.MatchString(symbol):
		return AssetCrypto
	case stockSymbol.MatchString(symbol):
		return AssetStock
	default:
		return AssetUnknown
	}
}
