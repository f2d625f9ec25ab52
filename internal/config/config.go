package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for coinmon.
type Config struct {
	Provider  Provider  `yaml:"provider"`
	Dashboard Dashboard `yaml:"dashboard"`
	Stream    Stream    `yaml:"stream"`
	Watchlist Watchlist `yaml:"watchlist"`
	Alerts    Alerts    `yaml:"alerts"`
	Logging   Logging   `yaml:"logging"`
}

// Provider selects and configures the market-data source.
type Provider struct {
	Name            string   `yaml:"name"` // "coinmarketcap" or "alpaca"
	BaseURL         string   `yaml:"base_url"`
	APIKey          string   `yaml:"api_key"`
	APISecret       string   `yaml:"api_secret"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
	Feed            string   `yaml:"feed"`    // alpaca only
	Symbols         []string `yaml:"symbols"` // alpaca universe
}

// Dashboard controls what the table shows and how often it refreshes.
type Dashboard struct {
	Top            int      `yaml:"top"`
	RefreshSeconds int      `yaml:"refresh_seconds"` // 0 = fetch once
	Currency       string   `yaml:"currency"`
	Sort           string   `yaml:"sort"`
	RawStats       bool     `yaml:"raw_stats"`
	Symbols        []string `yaml:"symbols"` // show only these instead of the top N
}

// Stream configures the optional websocket push trigger. Pushes only request
// a refresh; data always comes from the provider.
type Stream struct {
	Enabled       bool     `yaml:"enabled"`
	URL           string   `yaml:"url"`
	Symbols       []string `yaml:"symbols"`
	MinGapSeconds int      `yaml:"min_gap_seconds"`
}

// Watchlist configures the persisted watchlist.
type Watchlist struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Alerts holds threshold notifications evaluated after each refresh.
type Alerts struct {
	PriceAbove    map[string]float64 `yaml:"price_above"`
	PercentChange float64            `yaml:"percent_change"` // 1h/24h rise, 0 disables
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ---------------------------------------------------------------------------
// Defaults and validation
// ---------------------------------------------------------------------------

// SupportedCurrencies lists the quote currencies accepted for conversion.
var SupportedCurrencies = []string{
	"AUD", "BRL", "CAD", "CHF",
	"CLP", "CNY", "CZK", "DKK",
	"EUR", "GBP", "HKD", "HUF",
	"IDR", "ILS", "INR", "JPY",
	"KRW", "MXN", "MYR", "NOK",
	"NZD", "PHP", "PKR", "PLN",
	"RUB", "SEK", "SGD", "USD",
	"THB", "TRY", "TWD", "ZAR",
}

// SortModes lists the accepted dashboard.sort values.
var SortModes = []string{"rank", "change", "volume", "marketcap"}

// Default returns a configuration usable without a file: the top 10
// CoinMarketCap listings in USD, fetched once.
func Default() *Config {
	return &Config{
		Provider: Provider{
			Name:            "coinmarketcap",
			TimeoutSeconds:  10,
			RateLimitPerMin: 30,
		},
		Dashboard: Dashboard{
			Top:      10,
			Currency: "USD",
			Sort:     "rank",
		},
		Stream: Stream{
			URL:           "wss://stream.binance.com:9443/ws",
			MinGapSeconds: 15,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigurationError reports an invalid setting. It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Validate checks the settings the dashboard cannot start without.
func (c *Config) Validate() error {
	if c.Dashboard.RefreshSeconds < 0 {
		return &ConfigurationError{Field: "dashboard.refresh_seconds", Reason: fmt.Sprintf("must be >= 0, got %d", c.Dashboard.RefreshSeconds)}
	}
	if c.Dashboard.Top < 1 {
		return &ConfigurationError{Field: "dashboard.top", Reason: fmt.Sprintf("must be >= 1, got %d", c.Dashboard.Top)}
	}
	if !contains(SupportedCurrencies, strings.ToUpper(c.Dashboard.Currency)) {
		return &ConfigurationError{Field: "dashboard.currency", Reason: fmt.Sprintf("unsupported currency %q", c.Dashboard.Currency)}
	}
	if c.Dashboard.Sort != "" && !contains(SortModes, c.Dashboard.Sort) {
		return &ConfigurationError{Field: "dashboard.sort", Reason: fmt.Sprintf("unknown sort mode %q", c.Dashboard.Sort)}
	}
	switch c.Provider.Name {
	case "coinmarketcap":
	case "alpaca":
		if len(c.Provider.Symbols) == 0 && len(c.Dashboard.Symbols) == 0 {
			return &ConfigurationError{Field: "provider.symbols", Reason: "alpaca needs a symbol universe or tracked symbols"}
		}
		if !strings.EqualFold(c.Dashboard.Currency, "USD") {
			return &ConfigurationError{Field: "dashboard.currency", Reason: "alpaca quotes USD only"}
		}
	default:
		return &ConfigurationError{Field: "provider.name", Reason: fmt.Sprintf("unknown provider %q", c.Provider.Name)}
	}
	if c.Stream.Enabled && len(c.Stream.Symbols) == 0 {
		return &ConfigurationError{Field: "stream.symbols", Reason: "stream enabled without symbols"}
	}
	if c.Stream.MinGapSeconds < 0 {
		return &ConfigurationError{Field: "stream.min_gap_seconds", Reason: "must be >= 0"}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML file at path over Default(), applies environment
// overrides and provider credentials, and validates the result. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without credentials and validation, for callers that layer
// more overrides (command-line flags) on top before calling Finish.
func Read(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Finish normalises the config, binds the credentials of the selected
// provider from the environment and validates. Call it once, after every
// override has been applied.
func (c *Config) Finish() error {
	c.Normalize()
	applyCredentialEnv(c)
	return c.Validate()
}

// Normalize canonicalises case-insensitive settings.
func (c *Config) Normalize() {
	c.Dashboard.Currency = strings.ToUpper(strings.TrimSpace(c.Dashboard.Currency))
	c.Dashboard.Sort = strings.ToLower(c.Dashboard.Sort)
	c.Provider.Name = strings.ToLower(c.Provider.Name)
	c.Dashboard.Symbols = upperAll(c.Dashboard.Symbols)

	if len(c.Alerts.PriceAbove) > 0 {
		above := make(map[string]float64, len(c.Alerts.PriceAbove))
		for sym, v := range c.Alerts.PriceAbove {
			above[strings.ToUpper(strings.TrimSpace(sym))] = v
		}
		c.Alerts.PriceAbove = above
	}
}

func upperAll(list []string) []string {
	var out []string
	for _, s := range list {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COINMON_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}

	if v := os.Getenv("COINMON_TOP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dashboard.Top = n
		}
	}

	if v := os.Getenv("COINMON_REFRESH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dashboard.RefreshSeconds = n
		}
	}

	if v := os.Getenv("COINMON_CURRENCY"); v != "" {
		cfg.Dashboard.Currency = v
	}

	if v := os.Getenv("COINMON_WATCHLIST_DB"); v != "" {
		cfg.Watchlist.SQLitePath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyCredentialEnv binds the API credentials of the selected provider.
func applyCredentialEnv(cfg *Config) {
	switch cfg.Provider.Name {
	case "coinmarketcap":
		if v := os.Getenv("CMC_PRO_API_KEY"); v != "" {
			cfg.Provider.APIKey = v
		}
	case "alpaca":
		// Standard Alpaca env vars, the names the SDK itself reads.
		if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
			cfg.Provider.APIKey = v
		}
		if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
			cfg.Provider.APISecret = v
		}
	}
}
