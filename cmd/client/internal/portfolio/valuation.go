package portfolio

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

type HoldingValue struct {
	Holding
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	PnL          decimal.Decimal `json:"pnl"`
	PnLPercent   decimal.Decimal `json:"pnlPercent"`
}

type Valuation struct {
	Holdings        []HoldingValue
	Cash            decimal.Decimal
	TotalValue      decimal.Decimal
	TotalPnL        decimal.Decimal
	TotalPnLPercent decimal.Decimal
}

// Value prices every holding. A holding without a known price is valued at
// its average cost. TotalPnLPercent compares TotalValue with initialCash.
func Value(holdings []Holding, prices map[string]decimal.Decimal, cash, initialCash decimal.Decimal) Valuation {
	v := Valuation{
		Holdings:   make([]HoldingValue, 0, len(holdings)),
		Cash:       cash,
		TotalValue: cash,
	}
	for _, h := range holdings {
		price, ok := prices[h.Symbol]
		if !ok {
			price = h.AvgPrice
		}
		hv := HoldingValue{
			Holding:      h,
			CurrentPrice: price,
			CurrentValue: h.Quantity.Mul(price),
			CostBasis:    h.Quantity.Mul(h.AvgPrice),
		}
		hv.PnL = hv.CurrentValue.Sub(hv.CostBasis)
		if !hv.CostBasis.IsZero() {
			hv.PnLPercent = hv.PnL.Div(hv.CostBasis).Mul(hundred)
		}

		v.Holdings = append(v.Holdings, hv)
		v.TotalValue = v.TotalValue.Add(hv.CurrentValue)
		v.TotalPnL = v.TotalPnL.Add(hv.PnL)
	}
	if !initialCash.IsZero() {
		v.TotalPnLPercent = v.TotalValue.Sub(initialCash).Div(initialCash).Mul(hundred)
	}
	return v
}
