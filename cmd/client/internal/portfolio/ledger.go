// Package portfolio simulates trading against a virtual cash balance.
package portfolio

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

var (
	ErrInvalidTrade         = errors.New("quantity and price must be positive")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrUnknownHolding       = errors.New("asset not held")
)

// Holding is an open position. Quantity is always positive.
type Holding struct {
	Symbol     string            `json:"symbol"`
	Quantity   decimal.Decimal   `json:"quantity"`
	AvgPrice   decimal.Decimal   `json:"avgPrice"`
	AssetClass models.AssetClass `json:"type"`
}

// Transaction is an executed trade; never modified once recorded.
type Transaction struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
}

// State is a consistent copy of the ledger.
type State struct {
	Cash         decimal.Decimal
	Holdings     []Holding
	Transactions []Transaction
}

type Ledger struct {
	mu           sync.RWMutex
	cash         decimal.Decimal
	holdings     []Holding
	transactions []Transaction

	now   func() time.Time
	newID func() string
}

func NewLedger(s State) *Ledger {
	return &Ledger{
		cash:         s.Cash,
		holdings:     append([]Holding(nil), s.Holdings...),
		transactions: append([]Transaction(nil), s.Transactions...),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// WithClock replaces the timestamp source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Execute applies one trade. Cash, holdings and the transaction log change
// together or not at all.
func (l *Ledger) Execute(symbol string, side Side, quantity, price decimal.Decimal) (Transaction, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" || !quantity.IsPositive() || !price.IsPositive() {
		return Transaction{}, ErrInvalidTrade
	}
	if side != Buy && side != Sell {
		return Transaction{}, fmt.Errorf("%w: unknown side %q", ErrInvalidTrade, side)
	}
	total := quantity.Mul(price)

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.find(symbol)
	switch side {
	case Buy:
		if total.GreaterThan(l.cash) {
			return Transaction{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, total.StringFixed(2), l.cash.StringFixed(2))
		}
		l.cash = l.cash.Sub(total)
		if idx < 0 {
			l.holdings = append(l.holdings, Holding{
				Symbol:     symbol,
				Quantity:   quantity,
				AvgPrice:   price,
				AssetClass: models.Classify(symbol),
			})
			break
		}
		h := l.holdings[idx]
		newQty := h.Quantity.Add(quantity)
		h.AvgPrice = h.AvgPrice.Mul(h.Quantity).Add(total).Div(newQty)
		h.Quantity = newQty
		l.holdings[idx] = h

	case Sell:
		if idx < 0 {
			return Transaction{}, fmt.Errorf("%w: %s", ErrUnknownHolding, symbol)
		}
		h := l.holdings[idx]
		if quantity.GreaterThan(h.Quantity) {
			return Transaction{}, fmt.Errorf("%w: only %s units of %s", ErrInsufficientHoldings, h.Quantity.String(), symbol)
		}
		l.cash = l.cash.Add(total)
		h.Quantity = h.Quantity.Sub(quantity)
		if h.Quantity.IsZero() {
			l.holdings = append(l.holdings[:idx:idx], l.holdings[idx+1:]...)
		} else {
			l.holdings[idx] = h
		}
	}

	tx := Transaction{
		ID:        l.newID(),
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Total:     total,
		Timestamp: l.now().UTC(),
	}
	l.transactions = append(l.transactions, tx)
	return tx, nil
}

func (l *Ledger) Cash() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cash
}

func (l *Ledger) Holding(symbol string) (Holding, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.find(symbol); i >= 0 {
		return l.holdings[i], true
	}
	return Holding{}, false
}

// Snapshot returns copies of cash, holdings and the transaction log, oldest
// transaction first.
func (l *Ledger) Snapshot() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return State{
		Cash:         l.cash,
		Holdings:     append([]Holding(nil), l.holdings...),
		Transactions: append([]Transaction(nil), l.transactions...),
	}
}

func (l *Ledger) find(symbol string) int {
	for i, h := range l.holdings {
		if h.Symbol == symbol {
			return i
		}
	}
	return -1
}
