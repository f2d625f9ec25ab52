package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coinmon.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"COINMON_PROVIDER", "CMC_PRO_API_KEY", "COINMON_TOP", "COINMON_REFRESH",
		"COINMON_CURRENCY", "COINMON_WATCHLIST_DB", "LOG_LEVEL",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
provider:
  name: coinmarketcap
  api_key: "test-key"
  timeout_seconds: 5
  rate_limit_per_min: 20
dashboard:
  top: 25
  refresh_seconds: 60
  currency: eur
  sort: volume
stream:
  enabled: true
  symbols: [btcusdt, ethusdt]
  min_gap_seconds: 30
watchlist:
  sqlite_path: "/tmp/coinmon/watch.db"
alerts:
  price_above:
    BTC: 60000
  percent_change: 5
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Provider --
	if cfg.Provider.APIKey != "test-key" {
		t.Errorf("Provider.APIKey = %q, want %q", cfg.Provider.APIKey, "test-key")
	}
	if cfg.Provider.TimeoutSeconds != 5 {
		t.Errorf("Provider.TimeoutSeconds = %d, want 5", cfg.Provider.TimeoutSeconds)
	}

	// -- Dashboard --
	if cfg.Dashboard.Top != 25 {
		t.Errorf("Dashboard.Top = %d, want 25", cfg.Dashboard.Top)
	}
	if cfg.Dashboard.RefreshSeconds != 60 {
		t.Errorf("Dashboard.RefreshSeconds = %d, want 60", cfg.Dashboard.RefreshSeconds)
	}
	if cfg.Dashboard.Currency != "EUR" {
		t.Errorf("Dashboard.Currency = %q, want EUR (upper-cased)", cfg.Dashboard.Currency)
	}
	if cfg.Dashboard.Sort != "volume" {
		t.Errorf("Dashboard.Sort = %q, want volume", cfg.Dashboard.Sort)
	}

	// -- Stream --
	if !cfg.Stream.Enabled || len(cfg.Stream.Symbols) != 2 {
		t.Errorf("Stream = %+v, want enabled with 2 symbols", cfg.Stream)
	}
	if cfg.Stream.URL == "" {
		t.Error("Stream.URL should keep its default when not set in the file")
	}

	// -- Alerts --
	if cfg.Alerts.PriceAbove["BTC"] != 60000 {
		t.Errorf("Alerts.PriceAbove[BTC] = %v, want 60000", cfg.Alerts.PriceAbove["BTC"])
	}
	if cfg.Alerts.PercentChange != 5 {
		t.Errorf("Alerts.PercentChange = %v, want 5", cfg.Alerts.PercentChange)
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if cfg.Provider.Name != "coinmarketcap" || cfg.Dashboard.Top != 10 || cfg.Dashboard.RefreshSeconds != 0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("COINMON_TOP", "50")
	t.Setenv("COINMON_REFRESH", "15")
	t.Setenv("COINMON_CURRENCY", "gbp")
	t.Setenv("CMC_PRO_API_KEY", "env-key")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Dashboard.Top != 50 {
		t.Errorf("Dashboard.Top = %d, want 50", cfg.Dashboard.Top)
	}
	if cfg.Dashboard.RefreshSeconds != 15 {
		t.Errorf("Dashboard.RefreshSeconds = %d, want 15", cfg.Dashboard.RefreshSeconds)
	}
	if cfg.Dashboard.Currency != "GBP" {
		t.Errorf("Dashboard.Currency = %q, want GBP", cfg.Dashboard.Currency)
	}
	if cfg.Provider.APIKey != "env-key" {
		t.Errorf("Provider.APIKey = %q, want env-key", cfg.Provider.APIKey)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestAlpacaEnvCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("APCA_API_KEY_ID", "apca-key")
	t.Setenv("APCA_API_SECRET_KEY", "apca-secret")
	path := writeConfig(t, `
provider:
  name: alpaca
  symbols: [AAPL, MSFT]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Provider.APIKey != "apca-key" || cfg.Provider.APISecret != "apca-secret" {
		t.Errorf("alpaca credentials = %q/%q", cfg.Provider.APIKey, cfg.Provider.APISecret)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"negative refresh", func(c *Config) { c.Dashboard.RefreshSeconds = -1 }, "dashboard.refresh_seconds"},
		{"zero top", func(c *Config) { c.Dashboard.Top = 0 }, "dashboard.top"},
		{"bad currency", func(c *Config) { c.Dashboard.Currency = "XYZ" }, "dashboard.currency"},
		{"bad sort", func(c *Config) { c.Dashboard.Sort = "alphabet" }, "dashboard.sort"},
		{"bad provider", func(c *Config) { c.Provider.Name = "kraken" }, "provider.name"},
		{"alpaca without symbols", func(c *Config) { c.Provider.Name = "alpaca" }, "provider.symbols"},
		{"stream without symbols", func(c *Config) { c.Stream.Enabled = true }, "stream.symbols"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(cfg)
			err := cfg.Validate()
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() = %v, want ConfigurationError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("ConfigurationError.Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "dashboard:\n  refresh_seconds: -5\n")
	_, err := Load(path)
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("Load() = %v, want ConfigurationError", err)
	}
}

func TestReadDefersValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("COINMON_REFRESH", "-1")

	cfg, err := Read("")
	if err != nil {
		t.Fatalf("Read() returned error: %v", err)
	}
	if cfg.Dashboard.RefreshSeconds != -1 {
		t.Fatalf("Dashboard.RefreshSeconds = %d, want -1 from env", cfg.Dashboard.RefreshSeconds)
	}
	cfg.Dashboard.RefreshSeconds = 5
	if err := cfg.Finish(); err != nil {
		t.Errorf("Finish() after correcting refresh = %v, want nil", err)
	}
}

func TestFinishBindsCredentialsForResolvedProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("CMC_PRO_API_KEY", "cmc-key")
	t.Setenv("APCA_API_KEY_ID", "apca-key")
	t.Setenv("APCA_API_SECRET_KEY", "apca-secret")

	cfg, err := Read("")
	if err != nil {
		t.Fatalf("Read() returned error: %v", err)
	}
	cfg.Provider.Name = "Alpaca"
	cfg.Provider.Symbols = []string{"AAPL"}
	if err := cfg.Finish(); err != nil {
		t.Fatalf("Finish() returned error: %v", err)
	}
	if cfg.Provider.APIKey != "apca-key" || cfg.Provider.APISecret != "apca-secret" {
		t.Errorf("credentials = %q/%q, want the alpaca pair", cfg.Provider.APIKey, cfg.Provider.APISecret)
	}
}

func TestNormalizeSymbols(t *testing.T) {
	cfg := Default()
	cfg.Dashboard.Symbols = []string{" btc", "", "Eth"}
	cfg.Alerts.PriceAbove = map[string]float64{"doge": 0.1}
	cfg.Normalize()

	if got := cfg.Dashboard.Symbols; len(got) != 2 || got[0] != "BTC" || got[1] != "ETH" {
		t.Errorf("Dashboard.Symbols = %q, want [BTC ETH]", got)
	}
	if _, ok := cfg.Alerts.PriceAbove["DOGE"]; !ok {
		t.Errorf("Alerts.PriceAbove = %v, want DOGE key", cfg.Alerts.PriceAbove)
	}
}
