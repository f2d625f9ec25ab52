// Package dashboard holds the market dashboard state machine: the ticker
// cache, selection, refresh scheduler, and the controller that sequences
// fetches, renders and user commands on a single event loop.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"coinmon/internal/market"
	"coinmon/internal/metrics"
)

// ErrSymbolNotFound is returned by Search when no row matches.
var ErrSymbolNotFound = errors.New("symbol not found")

// Phase is the refresh state machine position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRefreshing
)

func (p Phase) String() string {
	if p == PhaseRefreshing {
		return "refreshing"
	}
	return "idle"
}

// Detail is the frozen content of an open detail view.
type Detail struct {
	Symbol   string
	Row      Row
	OpenedAt time.Time
}

// State is a read-only copy of the dashboard state.
type State struct {
	Tickers         []Row
	SelectedSymbol  string
	SelectedIndex   int
	LastRefreshedAt time.Time
	RefreshInFlight bool
	Phase           Phase
	Detail          *Detail
	Sort            SortMode
	LastError       error
}

// Watchlist persists watched symbols.
type Watchlist interface {
	Symbols(ctx context.Context) ([]string, error)
	Toggle(ctx context.Context, symbol string) (added bool, err error)
}

// Options configures a Controller.
type Options struct {
	Currency  string
	Sort      SortMode
	RawStats  bool
	Alerts    AlertRules
	Watchlist Watchlist // optional
	Logger    *slog.Logger
}

// Controller owns the dashboard state and turns scheduler results and user
// input into render instructions. It is not safe for concurrent use: every
// method must be called from the one event loop that also owns the
// Scheduler.
type Controller struct {
	sched     *Scheduler
	cache     *TickerCache
	selection *SelectionTracker
	renderer  Renderer
	alerts    *AlertEvaluator
	watchlist Watchlist
	log       *slog.Logger

	currency      string
	sort          SortMode
	raw           bool
	detail        *Detail
	lastRefreshed time.Time
	lastErr       error
	watched       map[string]bool

	alertSymbols []string
	unquoted     map[string]bool // alert symbols already reported missing
}

// NewController wires a controller around sched and r.
func NewController(sched *Scheduler, r Renderer, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	alertSymbols := make([]string, 0, len(opts.Alerts.PriceAbove))
	for sym := range opts.Alerts.PriceAbove {
		alertSymbols = append(alertSymbols, sym)
	}
	sort.Strings(alertSymbols)
	sched.Watch(alertSymbols)

	return &Controller{
		sched:     sched,
		cache:     NewTickerCache(),
		selection: NewSelectionTracker(),
		renderer:  r,
		alerts:    NewAlertEvaluator(opts.Alerts),
		watchlist: opts.Watchlist,
		log:       opts.Logger.With("component", "dashboard"),
		currency:  opts.Currency,
		sort:      opts.Sort,
		raw:       opts.RawStats,
		watched:   make(map[string]bool),

		alertSymbols: alertSymbols,
		unquoted:     make(map[string]bool),
	}
}

// Cache exposes the row set read-only to renderers.
func (c *Controller) Cache() *TickerCache { return c.cache }

// Scheduler returns the controller's scheduler, for arming timers.
func (c *Controller) Scheduler() *Scheduler { return c.sched }

// State returns a copy of the current state.
func (c *Controller) State() State {
	st := State{
		Tickers:         c.cache.Rows(),
		SelectedSymbol:  c.selection.Symbol(),
		SelectedIndex:   c.selection.Index(),
		LastRefreshedAt: c.lastRefreshed,
		RefreshInFlight: c.sched.InFlight(),
		Sort:            c.sort,
		LastError:       c.lastErr,
	}
	if st.RefreshInFlight {
		st.Phase = PhaseRefreshing
	}
	if c.detail != nil {
		d := *c.detail
		st.Detail = &d
	}
	return st
}

// ---------------------------------------------------------------------------
// Refresh cycle
// ---------------------------------------------------------------------------

// Start loads the watchlist, starts the scheduler and returns the first
// fetch for the event loop to run.
func (c *Controller) Start(ctx context.Context) (*Fetch, error) {
	if c.watchlist != nil {
		syms, err := c.watchlist.Symbols(ctx)
		if err != nil {
			c.log.Warn("loading watchlist", "error", err)
		}
		for _, s := range syms {
			c.watched[s] = true
		}
	}
	f, err := c.sched.Start()
	if err != nil {
		return nil, err
	}
	c.log.Info("dashboard started",
		"interval", c.sched.Interval(), "top", c.sched.TopN(), "sort", SortModeLabel(c.sort))
	c.render()
	return f, nil
}

// Tick handles a timer firing armed under epoch.
func (c *Controller) Tick(epoch uint64) *Fetch {
	f := c.sched.Tick(epoch)
	if f != nil {
		c.render()
	}
	return f
}

// ManualRefresh requests an immediate fetch. It returns nil when one is
// already running.
func (c *Controller) ManualRefresh() *Fetch {
	f := c.sched.RequestImmediateRefresh()
	if f == nil {
		c.log.Debug("manual refresh coalesced", "inFlight", c.sched.InFlight())
		return nil
	}
	c.render()
	return f
}

// Trigger requests a refresh on behalf of a push notification for symbol.
func (c *Controller) Trigger(symbol string) *Fetch {
	f := c.sched.RequestImmediateRefresh()
	if f != nil {
		c.log.Debug("refresh triggered by push", "symbol", symbol)
		c.render()
	}
	return f
}

// Apply consumes a fetch result. Stale results (from before a Stop) are
// dropped. A failed fetch is reported and leaves the cached rows untouched.
// The returned fetch, if any, must be run next.
func (c *Controller) Apply(r Result) *Fetch {
	apply, next := c.sched.Complete(r)
	if !apply {
		c.log.Debug("discarding stale result", "epoch", r.Epoch, "current", c.sched.Epoch())
		return next
	}

	if r.Err != nil {
		c.lastErr = r.Err
		c.log.Error("refresh failed", "error", r.Err, "elapsed", r.Duration)
		c.renderer.Notify(fmt.Sprintf("refresh failed: %v", r.Err), SeverityError)
		c.render()
		return next
	}

	rows := c.buildRows(r.Tickers)
	SortRows(rows, c.sort)

	c.cache.ReplaceAll(rows)
	c.selection.Reconcile(c.cache)
	c.lastRefreshed = r.At
	c.lastErr = nil
	c.log.Info("refreshed", "rows", len(rows), "elapsed", r.Duration, "selected", c.selection.Symbol())

	if r.ExtraErr != nil {
		c.log.Warn("quoting alert symbols", "error", r.ExtraErr)
	}
	watched := append(append([]Row(nil), rows...), c.buildRows(r.Extra)...)
	c.reportUnquoted(watched)
	for _, msg := range c.alerts.Evaluate(watched) {
		c.log.Info("alert", "message", msg)
		c.renderer.Notify(msg, SeverityInfo)
	}
	c.render()
	return next
}

func (c *Controller) buildRows(tickers []market.TickerSnapshot) []Row {
	rows := make([]Row, 0, len(tickers))
	for _, t := range tickers {
		clean, errs := metrics.Sanitize(t)
		for _, err := range errs {
			c.log.Warn("malformed field", "error", err)
		}
		rows = append(rows, Row{Ticker: clean, Metrics: metrics.Calculate(clean)})
	}
	return rows
}

// reportUnquoted warns once per alert symbol the provider returned no quote
// for, since its rules can never fire.
func (c *Controller) reportUnquoted(rows []Row) {
	if len(c.alertSymbols) == 0 {
		return
	}
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		seen[r.Ticker.Symbol] = true
	}
	for _, sym := range c.alertSymbols {
		if seen[sym] || c.unquoted[sym] {
			continue
		}
		c.unquoted[sym] = true
		c.log.Warn("alert symbol not quoted", "symbol", sym)
		c.renderer.Notify(fmt.Sprintf("alert on %s cannot fire: no quote from provider", sym), SeverityError)
	}
}

// Quit stops the scheduler; an in-flight fetch is discarded on arrival.
func (c *Controller) Quit() {
	c.sched.Stop()
	c.log.Info("dashboard stopped")
}

// ---------------------------------------------------------------------------
// User input
// ---------------------------------------------------------------------------

// ActivateRow opens the detail view for row i. The view shows the row as it
// is now; later refreshes do not change it. Ignored while a detail view is
// already open.
func (c *Controller) ActivateRow(i int) {
	if c.detail != nil {
		return
	}
	row, ok := c.cache.LookupByIndex(i)
	if !ok {
		return
	}
	c.selection.Select(c.cache, i)
	c.detail = &Detail{Symbol: row.Ticker.Symbol, Row: row, OpenedAt: time.Now()}
	c.renderer.RenderDetail(row.Ticker.Symbol, detailFields(row, c.raw))
}

// ActivateSelected opens the detail view for the selected row.
func (c *Controller) ActivateSelected() {
	c.ActivateRow(c.selection.Index())
}

// DismissDetail closes the detail view.
func (c *Controller) DismissDetail() {
	if c.detail == nil {
		return
	}
	c.detail = nil
	c.render()
}

// ToggleRaw switches between abbreviated and raw numbers in the detail view.
func (c *Controller) ToggleRaw() {
	c.raw = !c.raw
	if c.detail != nil {
		c.renderer.RenderDetail(c.detail.Symbol, detailFields(c.detail.Row, c.raw))
	}
}

// Search selects the row whose symbol (or, failing that, name) matches
// query, case-insensitively. On a miss the selection is unchanged and an
// error wrapping ErrSymbolNotFound is returned.
func (c *Controller) Search(query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	if !c.selection.SelectSymbol(c.cache, strings.ToUpper(q)) {
		found := false
		for _, r := range c.cache.Rows() {
			if strings.EqualFold(r.Ticker.Name, q) {
				found = c.selection.SelectSymbol(c.cache, r.Ticker.Symbol)
				break
			}
		}
		if !found {
			c.renderer.Notify(fmt.Sprintf("%s: not found", q), SeverityInfo)
			return fmt.Errorf("%w: %s", ErrSymbolNotFound, q)
		}
	}
	c.render()
	return nil
}

// MoveUp moves the selection one row up.
func (c *Controller) MoveUp() { c.move(-1) }

// MoveDown moves the selection one row down.
func (c *Controller) MoveDown() { c.move(1) }

// PageUp moves the selection PageStride rows up.
func (c *Controller) PageUp() { c.move(-PageStride) }

// PageDown moves the selection PageStride rows down.
func (c *Controller) PageDown() { c.move(PageStride) }

func (c *Controller) move(delta int) {
	if c.detail != nil || c.cache.Count() == 0 {
		return
	}
	c.selection.Move(c.cache, delta)
	c.render()
}

// CycleSort advances to the next sort mode, keeping the selected symbol.
func (c *Controller) CycleSort() {
	c.sort = (c.sort + 1) % SortModeCount
	rows := c.cache.Rows()
	SortRows(rows, c.sort)
	c.cache.ReplaceAll(rows)
	c.selection.Reconcile(c.cache)
	c.render()
}

// ToggleWatch adds or removes the selected symbol from the watchlist.
func (c *Controller) ToggleWatch(ctx context.Context) {
	sym := c.selection.Symbol()
	if sym == "" || c.watchlist == nil {
		return
	}
	added, err := c.watchlist.Toggle(ctx, sym)
	if err != nil {
		c.log.Warn("watchlist toggle failed", "symbol", sym, "error", err)
		c.renderer.Notify(fmt.Sprintf("watchlist: %v", err), SeverityError)
		return
	}
	if added {
		c.watched[sym] = true
	} else {
		delete(c.watched, sym)
	}
	c.log.Info("watchlist toggled", "symbol", sym, "added", added)
	c.render()
}

// Frame builds the current render instruction.
func (c *Controller) Frame() Frame {
	rows := c.cache.Rows()
	f := Frame{
		Headers:     Headers(c.currency),
		Rows:        make([]TableRow, len(rows)),
		Selected:    c.selection.Index(),
		Sort:        c.sort,
		Refreshing:  c.sched.InFlight(),
		RefreshedAt: c.lastRefreshed,
		DetailOpen:  c.detail != nil,
	}
	for i, r := range rows {
		f.Rows[i] = tableRow(r, c.watched[r.Ticker.Symbol])
	}
	if c.lastErr != nil {
		f.LastError = c.lastErr.Error()
	}
	return f
}

func (c *Controller) render() {
	c.renderer.Render(c.Frame())
}
