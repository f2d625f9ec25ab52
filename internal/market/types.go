// Package market defines the ticker snapshot model and the providers that
// fetch it: CoinMarketCap for crypto listings and Alpaca for equities.
package market

import (
	"context"
	"time"
)

// TickerSnapshot is one row of market data at a point in time. Monetary
// fields are denominated in Quote (USD unless another currency was requested).
type TickerSnapshot struct {
	Symbol string
	Name   string
	Rank   int
	Quote  string

	Price     float64
	PriceBTC  float64
	MarketCap float64
	Volume24h float64

	AvailableSupply float64
	TotalSupply     float64
	MaxSupply       float64 // 0 means uncapped

	PercentChange1h  float64
	PercentChange24h float64
	PercentChange7d  float64

	LastUpdated time.Time
}

// Provider fetches the top n tickers ordered by rank.
type Provider interface {
	// Name returns the provider identifier (e.g. "coinmarketcap", "alpaca").
	Name() string

	// FetchTop returns at most n tickers, rank ascending.
	FetchTop(ctx context.Context, n int) ([]TickerSnapshot, error)
}

// SymbolFetcher is implemented by providers that can quote named symbols
// regardless of rank.
type SymbolFetcher interface {
	FetchSymbols(ctx context.Context, symbols []string) ([]TickerSnapshot, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, n int) ([]TickerSnapshot, error)

// Name returns "func".
func (f ProviderFunc) Name() string { return "func" }

// FetchTop calls f.
func (f ProviderFunc) FetchTop(ctx context.Context, n int) ([]TickerSnapshot, error) {
	return f(ctx, n)
}
