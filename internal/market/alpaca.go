package market

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/sync/errgroup"
)

// snapshotBatchSize is the number of symbols per snapshot request.
const snapshotBatchSize = 100

// snapshotter is the subset of *marketdata.Client used by Alpaca.
type snapshotter interface {
	GetSnapshots(symbols []string, req marketdata.GetSnapshotRequest) (map[string]*marketdata.Snapshot, error)
}

// Alpaca ranks a fixed equity universe by traded dollar volume using Alpaca
// market-data snapshots. Equities carry no supply data, so supply fields and
// market cap are zero.
type Alpaca struct {
	client  snapshotter
	symbols []string
	feed    string
	workers int
	log     *slog.Logger
}

// AlpacaOpts configures an Alpaca provider.
type AlpacaOpts struct {
	APIKey    string
	APISecret string
	DataURL   string
	Feed      string // "iex" or "sip"; empty uses the account default
	Symbols   []string
	Workers   int
	Logger    *slog.Logger
}

// NewAlpaca creates an Alpaca provider backed by the market-data REST API.
func NewAlpaca(opts AlpacaOpts) *Alpaca {
	co := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		co.BaseURL = opts.DataURL
	}
	return newAlpaca(marketdata.NewClient(co), opts)
}

func newAlpaca(client snapshotter, opts AlpacaOpts) *Alpaca {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Alpaca{
		client:  client,
		symbols: opts.Symbols,
		feed:    opts.Feed,
		workers: opts.Workers,
		log:     opts.Logger.With("provider", "alpaca"),
	}
}

// Name returns the provider identifier.
func (a *Alpaca) Name() string { return "alpaca" }

// FetchTop fetches snapshots for the configured universe and returns the n
// most traded symbols by dollar volume.
func (a *Alpaca) FetchTop(ctx context.Context, n int) ([]TickerSnapshot, error) {
	if n < 1 {
		return nil, fetchErr(a.Name(), "snapshots", fmt.Errorf("invalid limit %d", n))
	}
	if len(a.symbols) == 0 {
		return nil, fetchErr(a.Name(), "snapshots", fmt.Errorf("no symbols configured"))
	}

	var (
		mu      sync.Mutex
		tickers []TickerSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := 0; i < len(a.symbols); i += snapshotBatchSize {
		end := min(i+snapshotBatchSize, len(a.symbols))
		batch := a.symbols[i:end]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snaps, err := a.client.GetSnapshots(batch, marketdata.GetSnapshotRequest{Feed: marketdata.Feed(a.feed)})
			if err != nil {
				return err
			}
			converted := make([]TickerSnapshot, 0, len(snaps))
			for sym, s := range snaps {
				if t, ok := fromSnapshot(sym, s); ok {
					converted = append(converted, t)
				}
			}
			mu.Lock()
			tickers = append(tickers, converted...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fetchErr(a.Name(), "snapshots", err)
	}

	sort.Slice(tickers, func(i, j int) bool {
		if tickers[i].Volume24h != tickers[j].Volume24h {
			return tickers[i].Volume24h > tickers[j].Volume24h
		}
		return tickers[i].Symbol < tickers[j].Symbol
	})
	if len(tickers) > n {
		tickers = tickers[:n]
	}
	for i := range tickers {
		tickers[i].Rank = i + 1
	}

	a.log.Debug("fetched snapshots", "universe", len(a.symbols), "count", len(tickers))
	return tickers, nil
}

// FetchSymbols returns snapshots for symbols in request order. Symbols
// without a daily bar are skipped. Rank is left at 0.
func (a *Alpaca) FetchSymbols(ctx context.Context, symbols []string) ([]TickerSnapshot, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fetchErr(a.Name(), "snapshots", err)
	}
	snaps, err := a.client.GetSnapshots(symbols, marketdata.GetSnapshotRequest{Feed: marketdata.Feed(a.feed)})
	if err != nil {
		return nil, fetchErr(a.Name(), "snapshots", err)
	}
	tickers := make([]TickerSnapshot, 0, len(symbols))
	for _, sym := range symbols {
		if t, ok := fromSnapshot(sym, snaps[sym]); ok {
			tickers = append(tickers, t)
		}
	}
	return tickers, nil
}

// fromSnapshot maps an Alpaca snapshot to a ticker row. Snapshots without a
// daily bar or trade are skipped.
func fromSnapshot(symbol string, s *marketdata.Snapshot) (TickerSnapshot, bool) {
	if s == nil || s.DailyBar == nil {
		return TickerSnapshot{}, false
	}
	t := TickerSnapshot{
		Symbol: symbol,
		Name:   symbol,
		Quote:  "USD",
		Price:  s.DailyBar.Close,
	}
	if s.LatestTrade != nil && s.LatestTrade.Price > 0 {
		t.Price = s.LatestTrade.Price
		t.LastUpdated = s.LatestTrade.Timestamp
	} else {
		t.LastUpdated = s.DailyBar.Timestamp
	}
	vwap := s.DailyBar.VWAP
	if vwap <= 0 {
		vwap = s.DailyBar.Close
	}
	t.Volume24h = vwap * float64(s.DailyBar.Volume)

	if s.PrevDailyBar != nil && s.PrevDailyBar.Close > 0 {
		t.PercentChange24h = (t.Price - s.PrevDailyBar.Close) / s.PrevDailyBar.Close * 100
	}
	return t, true
}
