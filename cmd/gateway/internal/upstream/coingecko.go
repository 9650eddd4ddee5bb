package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

const coinGeckoProvider = "coingecko"

// CoinGecko fetches crypto spot prices and market charts.
type CoinGecko struct {
	baseURL string
	client  *http.Client
}

func NewCoinGecko(baseURL string, client *http.Client) *CoinGecko {
	return &CoinGecko{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// SimplePrice fetches every id in one request, with 24h change included.
// The body is returned verbatim.
func (c *CoinGecko) SimplePrice(ctx context.Context, ids []string, vs string) ([]byte, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", vs)
	q.Set("include_24hr_change", "true")

	return get(ctx, c.client, coinGeckoProvider, c.baseURL+"/simple/price?"+q.Encode())
}

// MarketChart fetches historical prices for one coin over the given day range.
func (c *CoinGecko) MarketChart(ctx context.Context, coin, days, vs string) ([]byte, error) {
	q := url.Values{}
	q.Set("vs_currency", vs)
	q.Set("days", days)

	u := fmt.Sprintf("%s/coins/%s/market_chart?%s", c.baseURL, url.PathEscape(coin), q.Encode())
	return get(ctx, c.client, coinGeckoProvider, u)
}

// DecodeSimplePrice turns a simple-price body into typed quotes. The vs
// currency's price and change land in the USD fields; ids without a price
// are left out.
func DecodeSimplePrice(raw []byte, vs string) (map[string]models.CryptoQuote, error) {
	var body map[string]map[string]*float64
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode simple price: %w", err)
	}

	out := make(map[string]models.CryptoQuote, len(body))
	for id, fields := range body {
		price := fields[vs]
		if price == nil {
			continue
		}
		out[id] = models.CryptoQuote{
			USD:          *price,
			USD24hChange: fields[vs+"_24h_change"],
		}
	}
	return out, nil
}

// DecodeMarketChart validates a market-chart body.
func DecodeMarketChart(raw []byte) (models.MarketChart, error) {
	var chart models.MarketChart
	if err := json.Unmarshal(raw, &chart); err != nil {
		return models.MarketChart{}, fmt.Errorf("decode market chart: %w", err)
	}
	return chart, nil
}
