// Package engine wires configuration into a running dashboard: it builds the
// market-data provider, the refresh scheduler, the watchlist store and the
// optional push trigger, and hands the frontends a ready Controller.
package engine

import (
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"coinmon/internal/config"
	"coinmon/internal/dashboard"
	"coinmon/internal/live"
	"coinmon/internal/market"
	"coinmon/internal/watchlist"
)

// Engine holds the components behind one dashboard.
type Engine struct {
	Config     *config.Config
	Provider   market.Provider
	Controller *dashboard.Controller
	Trigger    *live.Trigger // nil unless stream.enabled

	watchlist *watchlist.Store
	log       *slog.Logger
}

// New builds an engine rendering to r. Call Close when done.
func New(cfg *config.Config, r dashboard.Renderer, logger *slog.Logger) (*Engine, error) {
	provider, err := NewProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	sched := dashboard.NewScheduler(provider)
	if err := sched.Configure(cfg.Dashboard.RefreshSeconds, cfg.Dashboard.Top); err != nil {
		return nil, err
	}
	sched.Track(cfg.Dashboard.Symbols)

	e := &Engine{Config: cfg, Provider: provider, log: logger}

	opts := dashboard.Options{
		Currency: cfg.Dashboard.Currency,
		Sort:     dashboard.ParseSortMode(cfg.Dashboard.Sort),
		RawStats: cfg.Dashboard.RawStats,
		Alerts: dashboard.AlertRules{
			PriceAbove:    cfg.Alerts.PriceAbove,
			PercentChange: cfg.Alerts.PercentChange,
		},
		Logger: logger,
	}
	if path := cfg.Watchlist.SQLitePath; path != "" {
		store, err := watchlist.Open(path)
		if err != nil {
			return nil, err
		}
		e.watchlist = store
		opts.Watchlist = store
	}
	e.Controller = dashboard.NewController(sched, r, opts)

	if cfg.Stream.Enabled {
		e.Trigger = live.NewTrigger(live.TriggerOpts{
			URL:     cfg.Stream.URL,
			Symbols: cfg.Stream.Symbols,
			MinGap:  time.Duration(cfg.Stream.MinGapSeconds) * time.Second,
			Logger:  logger,
		})
	}

	logger.Info("engine ready",
		"provider", provider.Name(),
		"top", cfg.Dashboard.Top,
		"refresh", cfg.Dashboard.RefreshSeconds,
		"currency", cfg.Dashboard.Currency,
		"tracked", len(cfg.Dashboard.Symbols),
		"watchlist", cfg.Watchlist.SQLitePath != "",
		"stream", cfg.Stream.Enabled)
	return e, nil
}

// Close releases the watchlist database.
func (e *Engine) Close() error {
	if e.watchlist != nil {
		return e.watchlist.Close()
	}
	return nil
}

// NewProvider returns the provider named by cfg.Provider.Name.
func NewProvider(cfg *config.Config, logger *slog.Logger) (market.Provider, error) {
	p := cfg.Provider
	switch p.Name {
	case "coinmarketcap":
		return market.NewCoinMarketCap(market.CoinMarketCapOpts{
			BaseURL:         p.BaseURL,
			APIKey:          p.APIKey,
			Currency:        cfg.Dashboard.Currency,
			Timeout:         time.Duration(p.TimeoutSeconds) * time.Second,
			RateLimitPerMin: p.RateLimitPerMin,
			Logger:          logger,
		}), nil
	case "alpaca":
		return market.NewAlpaca(market.AlpacaOpts{
			APIKey:    p.APIKey,
			APISecret: p.APISecret,
			DataURL:   p.BaseURL,
			Feed:      p.Feed,
			Symbols:   p.Symbols,
			Logger:    logger,
		}), nil
	default:
		return nil, &config.ConfigurationError{Field: "provider.name", Reason: fmt.Sprintf("unknown provider %q", p.Name)}
	}
}

// ---------------------------------------------------------------------------
// Command-line flags
// ---------------------------------------------------------------------------

// Flags are the command-line overrides shared by the frontends.
type Flags struct {
	fs *flag.FlagSet

	ConfigPath string
	Top        int
	Refresh    int
	Currency   string
	Provider   string
	Sort       string
	LogLevel   string
	Watchlist  string
	Symbols    string
}

// BindFlags registers the shared flags on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigPath, "config", "", "path to YAML config file")
	fs.IntVar(&f.Top, "top", 0, "number of tickers to show")
	fs.IntVar(&f.Refresh, "refresh", 0, "refresh interval in seconds (0 = fetch once)")
	fs.StringVar(&f.Currency, "currency", "", "quote currency, e.g. USD or EUR")
	fs.StringVar(&f.Provider, "provider", "", "market data provider: coinmarketcap or alpaca")
	fs.StringVar(&f.Sort, "sort", "", "initial sort: rank, change, volume or marketcap")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&f.Watchlist, "watchlist", "", "path to the watchlist SQLite database")
	fs.StringVar(&f.Symbols, "symbols", "", "comma-separated symbols to show instead of the top N")
	return f
}

// Load reads the config file and environment, applies every flag that was
// set on the command line, then binds credentials and validates once.
func (f *Flags) Load() (*config.Config, error) {
	cfg, err := config.Read(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "top":
			cfg.Dashboard.Top = f.Top
		case "refresh":
			cfg.Dashboard.RefreshSeconds = f.Refresh
		case "currency":
			cfg.Dashboard.Currency = f.Currency
		case "provider":
			cfg.Provider.Name = f.Provider
		case "sort":
			cfg.Dashboard.Sort = f.Sort
		case "log-level":
			cfg.Logging.Level = f.LogLevel
		case "watchlist":
			cfg.Watchlist.SQLitePath = f.Watchlist
		case "symbols":
			cfg.Dashboard.Symbols = strings.Split(f.Symbols, ",")
		}
	})
	if err := cfg.Finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}
