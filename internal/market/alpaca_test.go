package market

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"coinmon/internal/util"
)

type fakeSnapshotter struct {
	mu      sync.Mutex
	snaps   map[string]*marketdata.Snapshot
	batches [][]string
	err     error
}

func (f *fakeSnapshotter) GetSnapshots(symbols []string, _ marketdata.GetSnapshotRequest) (map[string]*marketdata.Snapshot, error) {
	f.mu.Lock()
	f.batches = append(f.batches, symbols)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]*marketdata.Snapshot)
	for _, s := range symbols {
		if snap, ok := f.snaps[s]; ok {
			out[s] = snap
		}
	}
	return out, nil
}

func snapshot(last, prevClose, vwap float64, volume uint64) *marketdata.Snapshot {
	ts := time.Date(2024, 6, 14, 20, 0, 0, 0, time.UTC)
	return &marketdata.Snapshot{
		LatestTrade:  &marketdata.Trade{Price: last, Timestamp: ts},
		DailyBar:     &marketdata.Bar{Close: last, VWAP: vwap, Volume: volume, Timestamp: ts},
		PrevDailyBar: &marketdata.Bar{Close: prevClose},
	}
}

func TestAlpacaFetchTopRanksByDollarVolume(t *testing.T) {
	fake := &fakeSnapshotter{snaps: map[string]*marketdata.Snapshot{
		"AAPL": snapshot(200, 190, 198, 50_000_000),
		"TSLA": snapshot(180, 200, 185, 90_000_000),
		"IBM":  snapshot(170, 170, 170, 1_000_000),
		"NODB": {LatestTrade: &marketdata.Trade{Price: 1}},
	}}
	a := newAlpaca(fake, AlpacaOpts{Symbols: []string{"AAPL", "TSLA", "IBM", "NODB"}, Logger: util.Discard()})

	tickers, err := a.FetchTop(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchTop: %v", err)
	}
	if len(tickers) != 2 {
		t.Fatalf("got %d tickers, want 2", len(tickers))
	}
	if tickers[0].Symbol != "TSLA" || tickers[0].Rank != 1 || tickers[1].Symbol != "AAPL" || tickers[1].Rank != 2 {
		t.Errorf("order = %s#%d, %s#%d", tickers[0].Symbol, tickers[0].Rank, tickers[1].Symbol, tickers[1].Rank)
	}
	tsla := tickers[0]
	if tsla.Volume24h != 185*90_000_000 {
		t.Errorf("Volume24h = %v", tsla.Volume24h)
	}
	if math.Abs(tsla.PercentChange24h-(-10)) > 1e-9 {
		t.Errorf("PercentChange24h = %v, want -10", tsla.PercentChange24h)
	}
	if tsla.Quote != "USD" || tsla.MarketCap != 0 {
		t.Errorf("quote/market cap = %s/%v", tsla.Quote, tsla.MarketCap)
	}
}

func TestAlpacaBatches(t *testing.T) {
	syms := make([]string, 250)
	for i := range syms {
		syms[i] = "S" + string(rune('A'+i%26)) + string(rune('A'+i/26))
	}
	fake := &fakeSnapshotter{}
	a := newAlpaca(fake, AlpacaOpts{Symbols: syms, Workers: 2, Logger: util.Discard()})
	if _, err := a.FetchTop(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	if len(fake.batches) != 3 {
		t.Errorf("batches = %d, want 3", len(fake.batches))
	}
	total := 0
	for _, b := range fake.batches {
		if len(b) > snapshotBatchSize {
			t.Errorf("batch of %d exceeds %d", len(b), snapshotBatchSize)
		}
		total += len(b)
	}
	if total != 250 {
		t.Errorf("symbols requested = %d, want 250", total)
	}
}

func TestAlpacaError(t *testing.T) {
	fake := &fakeSnapshotter{err: errors.New("forbidden")}
	a := newAlpaca(fake, AlpacaOpts{Symbols: []string{"AAPL"}, Logger: util.Discard()})
	_, err := a.FetchTop(context.Background(), 1)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Provider != "alpaca" {
		t.Fatalf("err = %v, want alpaca FetchError", err)
	}

	empty := newAlpaca(fake, AlpacaOpts{Logger: util.Discard()})
	if _, err := empty.FetchTop(context.Background(), 1); err == nil {
		t.Error("no symbols should fail")
	}
}

func TestFromSnapshotFallsBackToClose(t *testing.T) {
	s := &marketdata.Snapshot{DailyBar: &marketdata.Bar{Close: 10, Volume: 100}}
	got, ok := fromSnapshot("X", s)
	if !ok {
		t.Fatal("snapshot with a daily bar should convert")
	}
	if got.Price != 10 || got.Volume24h != 1000 || got.PercentChange24h != 0 {
		t.Errorf("fromSnapshot = %+v", got)
	}
	if _, ok := fromSnapshot("Y", nil); ok {
		t.Error("nil snapshot should be skipped")
	}
}

func TestAlpacaFetchSymbols(t *testing.T) {
	fake := &fakeSnapshotter{snaps: map[string]*marketdata.Snapshot{
		"AAPL": snapshot(200, 190, 198, 50_000_000),
		"IBM":  snapshot(170, 170, 170, 1_000_000),
	}}
	a := newAlpaca(fake, AlpacaOpts{Symbols: []string{"AAPL"}, Logger: util.Discard()})

	tickers, err := a.FetchSymbols(context.Background(), []string{"IBM", "GONE", "AAPL"})
	if err != nil {
		t.Fatalf("FetchSymbols: %v", err)
	}
	if len(tickers) != 2 || tickers[0].Symbol != "IBM" || tickers[1].Symbol != "AAPL" {
		t.Fatalf("tickers = %+v, want IBM then AAPL", tickers)
	}
	if tickers[0].Rank != 0 {
		t.Errorf("by-symbol rows carry no rank, got %d", tickers[0].Rank)
	}
}
