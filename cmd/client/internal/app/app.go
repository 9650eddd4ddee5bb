// Package app is the terminal client: it owns the watchlist, live tickers,
// the simulated portfolio and their persistence.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/indicators"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/portfolio"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/reconciler"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/store"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/watchlist"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

const (
	defaultSMAPeriod = 20
	defaultEMAPeriod = 12
	chartTail        = 10
)

var (
	ErrQuit           = errors.New("quit")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
	ErrNoPrice        = errors.New("no live price yet")
	ErrLivePrice      = errors.New("live price available, trades use it")
)

// Gateway is what the client asks the proxy endpoints for.
type Gateway interface {
	watchlist.Prober
	CryptoHistory(ctx context.Context, coin, days string) (models.MarketChart, error)
}

type Options struct {
	InitialCash  decimal.Decimal
	SeriesLimit  int
	HistoryLimit int
}

type App struct {
	watch   *watchlist.Watchlist
	recon   *reconciler.Reconciler
	ledger  *portfolio.Ledger
	history *portfolio.History
	store   *store.Store
	gateway Gateway
	opts    Options
	logger  *zap.Logger
}

// New restores persisted state from st. Keys that were never saved fall back
// to seed symbols, starting cash and empty collections.
func New(ctx context.Context, st *store.Store, gw Gateway, seed []string, opts Options, logger *zap.Logger) (*App, error) {
	symbols, ok, err := st.LoadWatchlist(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		symbols = seed
	}
	holdings, _, err := st.LoadHoldings(ctx)
	if err != nil {
		return nil, err
	}
	txs, _, err := st.LoadTransactions(ctx)
	if err != nil {
		return nil, err
	}
	cash, ok, err := st.LoadCash(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		cash = opts.InitialCash
	}
	points, _, err := st.LoadHistory(ctx)
	if err != nil {
		return nil, err
	}

	a := &App{
		watch:   watchlist.New(symbols),
		recon:   reconciler.New(opts.SeriesLimit),
		ledger:  portfolio.NewLedger(portfolio.State{Cash: cash, Holdings: holdings, Transactions: txs}),
		history: portfolio.NewHistory(opts.HistoryLimit, points),
		store:   st,
		gateway: gw,
		opts:    opts,
		logger:  logger,
	}
	a.recon.SetWatchlist(a.watch.Symbols())
	return a, nil
}

// OnSnapshot is the stream handler.
func (a *App) OnSnapshot(snap models.PriceSnapshot) {
	a.recon.Apply(snap)
}

// Valuation prices the portfolio at the current tickers.
func (a *App) Valuation() portfolio.Valuation {
	st := a.ledger.Snapshot()
	prices := make(map[string]decimal.Decimal)
	for symbol, t := range a.recon.Tickers() {
		prices[symbol] = decimal.NewFromFloat(t.Price)
	}
	return portfolio.Value(st.Holdings, prices, st.Cash, a.opts.InitialCash)
}

// SampleValue appends the current total value to the history and saves it.
func (a *App) SampleValue(ctx context.Context, now time.Time) error {
	a.history.Record(now.UnixMilli(), a.Valuation().TotalValue)
	return a.store.SaveHistory(ctx, a.history.Points())
}

// RunSampler samples the portfolio value every interval until ctx is done.
func (a *App) RunSampler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := a.SampleValue(ctx, now); err != nil {
				a.logger.Warn("Failed to save value history", zap.Error(err))
			}
		}
	}
}

// Exec runs one command line and writes its output to w.
func (a *App) Exec(ctx context.Context, line string, w io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "add":
		return a.add(ctx, args, w)
	case "rm", "remove":
		return a.remove(ctx, args, w)
	case "watch", "ls":
		return a.printTickers(w)
	case "buy":
		return a.trade(ctx, portfolio.Buy, args, w)
	case "sell":
		return a.trade(ctx, portfolio.Sell, args, w)
	case "portfolio", "pf":
		return a.printPortfolio(w)
	case "tx":
		return a.printTransactions(w)
	case "chart":
		return a.printChart(args, w)
	case "history":
		return a.printHistory(ctx, args, w)
	case "value":
		return a.printValueHistory(w)
	case "help":
		fmt.Fprintln(w, helpText)
		return nil
	case "quit", "exit":
		return ErrQuit
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

const helpText = `commands:
  add SYMBOL               track a crypto id (bitcoin) or ticker (MSFT)
  rm SYMBOL                stop tracking a symbol
  watch                    live prices for the watchlist
  buy SYMBOL QTY [PRICE]   buy at the live price (PRICE only without one)
  sell SYMBOL QTY [PRICE]  sell at the live price (PRICE only without one)
  portfolio                holdings, value and P&L
  tx                       transaction log, newest first
  chart SYMBOL [SMA] [EMA] recent series with moving averages
  history COIN [DAYS]      market chart summary from the gateway
  value                    portfolio value samples
  quit`

func (a *App) add(ctx context.Context, args []string, w io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: add SYMBOL", ErrUsage)
	}
	symbol, err := a.watch.Add(ctx, args[0], a.gateway)
	if err != nil {
		return err
	}
	a.recon.SetWatchlist(a.watch.Symbols())
	if err := a.store.SaveWatchlist(ctx, a.watch.Symbols()); err != nil {
		return err
	}
	fmt.Fprintf(w, "added %s\n", symbol)
	return nil
}

func (a *App) remove(ctx context.Context, args []string, w io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: rm SYMBOL", ErrUsage)
	}
	if !a.watch.Remove(args[0]) {
		return fmt.Errorf("%s is not on the watchlist", args[0])
	}
	a.recon.SetWatchlist(a.watch.Symbols())
	if err := a.store.SaveWatchlist(ctx, a.watch.Symbols()); err != nil {
		return err
	}
	fmt.Fprintf(w, "removed %s\n", args[0])
	return nil
}

func (a *App) trade(ctx context.Context, side portfolio.Side, args []string, w io.Writer) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: %s SYMBOL QTY [PRICE]", ErrUsage, side)
	}
	symbol := args[0]
	qty, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("%w: quantity %q", ErrUsage, args[1])
	}

	// PRICE is only for symbols the stream has no ticker for
	var price decimal.Decimal
	t, live := a.recon.Ticker(symbol)
	switch {
	case live && len(args) == 3:
		return fmt.Errorf("%w: %s trades at %s", ErrLivePrice, symbol, formatFloat(t.Price))
	case live:
		price = decimal.NewFromFloat(t.Price)
	case len(args) == 3:
		if price, err = decimal.NewFromString(args[2]); err != nil {
			return fmt.Errorf("%w: price %q", ErrUsage, args[2])
		}
	default:
		return fmt.Errorf("%w for %s", ErrNoPrice, symbol)
	}

	tx, err := a.ledger.Execute(symbol, side, qty, price)
	if err != nil {
		return err
	}
	if err := a.store.SaveLedger(ctx, a.ledger.Snapshot()); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s %s @ %s = %s, cash %s\n",
		tx.Side, tx.Quantity, tx.Symbol, tx.Price.StringFixed(2), tx.Total.StringFixed(2), a.ledger.Cash().StringFixed(2))
	return nil
}

func (a *App) printTickers(w io.Writer) error {
	tickers := a.recon.Tickers()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tPRICE\tCHANGE")
	for _, symbol := range a.watch.Symbols() {
		t, ok := tickers[symbol]
		if !ok {
			fmt.Fprintf(tw, "%s\t-\t-\n", symbol)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", symbol, formatFloat(t.Price), formatChange(t.ChangePercent))
	}
	return tw.Flush()
}

func (a *App) printPortfolio(w io.Writer) error {
	v := a.Valuation()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tQTY\tAVG\tPRICE\tVALUE\tP&L\tP&L%")
	for _, h := range v.Holdings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s%%\n",
			h.Symbol, h.Quantity.StringFixed(4), h.AvgPrice.StringFixed(2), h.CurrentPrice.StringFixed(2),
			h.CurrentValue.StringFixed(2), h.PnL.StringFixed(2), h.PnLPercent.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "cash %s  total %s  P&L %s (%s%%)\n",
		v.Cash.StringFixed(2), v.TotalValue.StringFixed(2), v.TotalPnL.StringFixed(2), v.TotalPnLPercent.StringFixed(2))
	return nil
}

func (a *App) printTransactions(w io.Writer) error {
	txs := a.ledger.Snapshot().Transactions
	if len(txs) == 0 {
		fmt.Fprintln(w, "no transactions yet")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSIDE\tSYMBOL\tQTY\tPRICE\tTOTAL")
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.Timestamp.Local().Format(time.DateTime), tx.Side, tx.Symbol,
			tx.Quantity.StringFixed(4), tx.Price.StringFixed(2), tx.Total.StringFixed(2))
	}
	return tw.Flush()
}

func (a *App) printChart(args []string, w io.Writer) error {
	if len(args) < 1 || len(args) > 3 {
		return fmt.Errorf("%w: chart SYMBOL [SMA] [EMA]", ErrUsage)
	}
	smaPeriod, emaPeriod := defaultSMAPeriod, defaultEMAPeriod
	var err error
	if len(args) > 1 {
		if smaPeriod, err = strconv.Atoi(args[1]); err != nil || smaPeriod < 1 {
			return fmt.Errorf("%w: SMA period %q", ErrUsage, args[1])
		}
	}
	if len(args) > 2 {
		if emaPeriod, err = strconv.Atoi(args[2]); err != nil || emaPeriod < 1 {
			return fmt.Errorf("%w: EMA period %q", ErrUsage, args[2])
		}
	}

	series := a.recon.Series(args[0])
	if len(series) == 0 {
		fmt.Fprintf(w, "no data for %s yet\n", args[0])
		return nil
	}
	ys := make([]float64, len(series))
	for i, p := range series {
		ys[i] = p.Y
	}
	sma := indicators.SMA(ys, smaPeriod)
	ema := indicators.EMA(ys, emaPeriod)

	start := len(series) - chartTail
	if start < 0 {
		start = 0
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TIME\tPRICE\tSMA(%d)\tEMA(%d)\n", smaPeriod, emaPeriod)
	for i := start; i < len(series); i++ {
		smaCell := "-"
		// sma[j] covers the window ending at ys[j+smaPeriod-1]
		if j := i - smaPeriod + 1; j >= 0 && j < len(sma) {
			smaCell = formatFloat(sma[j])
		}
		emaCell := "-"
		if len(ys) >= emaPeriod {
			emaCell = formatFloat(ema[i])
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			time.UnixMilli(series[i].X).Local().Format(time.TimeOnly), formatFloat(series[i].Y), smaCell, emaCell)
	}
	return tw.Flush()
}

func (a *App) printHistory(ctx context.Context, args []string, w io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: history COIN [DAYS]", ErrUsage)
	}
	days := "1"
	if len(args) == 2 {
		days = args[1]
	}
	chart, err := a.gateway.CryptoHistory(ctx, args[0], days)
	if err != nil {
		return err
	}
	if len(chart.Prices) == 0 {
		fmt.Fprintf(w, "no history for %s\n", args[0])
		return nil
	}

	prices := make([]float64, len(chart.Prices))
	for i, p := range chart.Prices {
		prices[i] = p[1]
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)
	first, last := chart.Prices[0], chart.Prices[len(chart.Prices)-1]

	fmt.Fprintf(w, "%s over %s day(s): %d points\n", args[0], days, len(prices))
	fmt.Fprintf(w, "  from %s  %s\n", time.UnixMilli(int64(first[0])).Local().Format(time.DateTime), formatFloat(first[1]))
	fmt.Fprintf(w, "  to   %s  %s\n", time.UnixMilli(int64(last[0])).Local().Format(time.DateTime), formatFloat(last[1]))
	fmt.Fprintf(w, "  low %s  high %s  change %s\n",
		formatFloat(sorted[0]), formatFloat(sorted[len(sorted)-1]), formatChange(reconciler.ChangePercent(last[1], first[1])))
	return nil
}

func (a *App) printValueHistory(w io.Writer) error {
	points := a.history.Points()
	if len(points) == 0 {
		fmt.Fprintln(w, "no samples yet")
		return nil
	}
	start := len(points) - chartTail
	if start < 0 {
		start = 0
	}
	for _, p := range points[start:] {
		fmt.Fprintf(w, "%s  %s\n", time.UnixMilli(p.Timestamp).Local().Format(time.DateTime), p.Value.StringFixed(2))
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatChange(c *float64) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", *c)
}
