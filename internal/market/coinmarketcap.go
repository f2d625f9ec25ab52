package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coinmon/internal/util"
)

// DefaultCoinMarketCapURL is the public Pro API endpoint.
const DefaultCoinMarketCapURL = "https://pro-api.coinmarketcap.com"

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type cmcStatus struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type cmcQuote struct {
	Price            float64 `json:"price"`
	Volume24h        float64 `json:"volume_24h"`
	PercentChange1h  float64 `json:"percent_change_1h"`
	PercentChange24h float64 `json:"percent_change_24h"`
	PercentChange7d  float64 `json:"percent_change_7d"`
	MarketCap        float64 `json:"market_cap"`
}

type cmcListing struct {
	Name              string              `json:"name"`
	Symbol            string              `json:"symbol"`
	CMCRank           int                 `json:"cmc_rank"`
	CirculatingSupply float64             `json:"circulating_supply"`
	TotalSupply       float64             `json:"total_supply"`
	MaxSupply         *float64            `json:"max_supply"`
	LastUpdated       string              `json:"last_updated"`
	Quote             map[string]cmcQuote `json:"quote"`
}

// cmcResponse is the envelope shared by every endpoint. Data is a list for
// listings and a symbol-keyed object for quotes.
type cmcResponse struct {
	Status cmcStatus       `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// ---------------------------------------------------------------------------
// CoinMarketCap
// ---------------------------------------------------------------------------

// CoinMarketCap fetches the latest crypto listings ranked by market cap.
type CoinMarketCap struct {
	baseURL    string
	apiKey     string
	currency   string
	httpClient *http.Client
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// CoinMarketCapOpts configures a CoinMarketCap provider.
type CoinMarketCapOpts struct {
	BaseURL         string
	APIKey          string
	Currency        string
	Timeout         time.Duration
	RateLimitPerMin int
	Logger          *slog.Logger
}

// NewCoinMarketCap creates a provider. Zero-valued options fall back to the
// public endpoint, USD, a 10s timeout and 30 requests per minute.
func NewCoinMarketCap(opts CoinMarketCapOpts) *CoinMarketCap {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultCoinMarketCapURL
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RateLimitPerMin <= 0 {
		opts.RateLimitPerMin = 30
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &CoinMarketCap{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		currency:   strings.ToUpper(opts.Currency),
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    util.NewRateLimiter(opts.RateLimitPerMin),
		log:        opts.Logger.With("provider", "coinmarketcap"),
	}
}

// Name returns the provider identifier.
func (c *CoinMarketCap) Name() string { return "coinmarketcap" }

// FetchTop returns the top n listings by rank.
func (c *CoinMarketCap) FetchTop(ctx context.Context, n int) ([]TickerSnapshot, error) {
	if n < 1 {
		return nil, fetchErr(c.Name(), "listings", fmt.Errorf("invalid limit %d", n))
	}

	q := url.Values{}
	q.Set("start", "1")
	q.Set("limit", strconv.Itoa(n))
	q.Set("convert", c.currency)

	start := time.Now()
	data, err := c.get(ctx, "listings", "/v1/cryptocurrency/listings/latest", q)
	if err != nil {
		return nil, err
	}
	var listings []cmcListing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fetchErr(c.Name(), "decoding listings", err)
	}

	tickers, err := c.convert(listings)
	if err != nil {
		return nil, fetchErr(c.Name(), "decoding listings", err)
	}
	if len(tickers) > n {
		tickers = tickers[:n]
	}

	c.log.Debug("fetched listings", "count", len(tickers), "elapsed", time.Since(start))
	return tickers, nil
}

// FetchSymbols returns quotes for the given symbols, in request order,
// whatever their rank. Symbols the API does not return are skipped.
func (c *CoinMarketCap) FetchSymbols(ctx context.Context, symbols []string) ([]TickerSnapshot, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("symbol", strings.ToUpper(strings.Join(symbols, ",")))
	q.Set("convert", c.currency)

	data, err := c.get(ctx, "quotes", "/v1/cryptocurrency/quotes/latest", q)
	if err != nil {
		return nil, err
	}
	var bySymbol map[string]cmcListing
	if err := json.Unmarshal(data, &bySymbol); err != nil {
		return nil, fetchErr(c.Name(), "decoding quotes", err)
	}

	listings := make([]cmcListing, 0, len(symbols))
	for _, sym := range symbols {
		if l, ok := bySymbol[strings.ToUpper(sym)]; ok {
			listings = append(listings, l)
		}
	}
	tickers, err := c.convert(listings)
	if err != nil {
		return nil, fetchErr(c.Name(), "decoding quotes", err)
	}
	c.log.Debug("fetched quotes", "requested", len(symbols), "count", len(tickers))
	return tickers, nil
}

// get performs a rate-limited GET against the Pro API and returns the raw
// "data" member after checking the HTTP and API status.
func (c *CoinMarketCap) get(ctx context.Context, op, path string, q url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fetchErr(c.Name(), "rate limit", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fetchErr(c.Name(), "building request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fetchErr(c.Name(), op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fetchErr(c.Name(), "reading body", err)
	}

	var payload cmcResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fetchErr(c.Name(), op, fmt.Errorf("HTTP %d", resp.StatusCode))
		}
		return nil, fetchErr(c.Name(), "decoding "+op, err)
	}
	if resp.StatusCode != http.StatusOK || payload.Status.ErrorCode != 0 {
		msg := payload.Status.ErrorMessage
		if msg == "" {
			msg = resp.Status
		}
		return nil, fetchErr(c.Name(), op, fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg))
	}
	return payload.Data, nil
}

func (c *CoinMarketCap) convert(listings []cmcListing) ([]TickerSnapshot, error) {
	tickers := make([]TickerSnapshot, 0, len(listings))
	for _, l := range listings {
		q, ok := l.Quote[c.currency]
		if !ok {
			return nil, fmt.Errorf("%s: missing %s quote", l.Symbol, c.currency)
		}
		t := TickerSnapshot{
			Symbol:           l.Symbol,
			Name:             l.Name,
			Rank:             l.CMCRank,
			Quote:            c.currency,
			Price:            q.Price,
			MarketCap:        q.MarketCap,
			Volume24h:        q.Volume24h,
			AvailableSupply:  l.CirculatingSupply,
			TotalSupply:      l.TotalSupply,
			PercentChange1h:  q.PercentChange1h,
			PercentChange24h: q.PercentChange24h,
			PercentChange7d:  q.PercentChange7d,
		}
		if l.MaxSupply != nil {
			t.MaxSupply = *l.MaxSupply
		}
		if btc, ok := l.Quote["BTC"]; ok {
			t.PriceBTC = btc.Price
		}
		if ts, err := time.Parse(time.RFC3339, l.LastUpdated); err == nil {
			t.LastUpdated = ts
		}
		tickers = append(tickers, t)
	}
	FillPriceBTC(tickers)
	return tickers, nil
}

// FillPriceBTC derives PriceBTC for rows that lack it from the BTC row of the
// same batch. Rows are left untouched when BTC is absent or has no price.
func FillPriceBTC(tickers []TickerSnapshot) {
	var btcPrice float64
	for i := range tickers {
		if tickers[i].Symbol == "BTC" {
			btcPrice = tickers[i].Price
			break
		}
	}
	if btcPrice <= 0 {
		return
	}
	for i := range tickers {
		if tickers[i].PriceBTC == 0 {
			tickers[i].PriceBTC = tickers[i].Price / btcPrice
		}
	}
}
