package dashboard

import (
	"context"
	"fmt"
	"time"

	"coinmon/internal/config"
	"coinmon/internal/market"
)

// Fetch is a provider call issued by the Scheduler. Run may execute off the
// event loop; its Result must be handed back through Scheduler.Complete
// (normally via Controller.Apply) on the event loop.
type Fetch struct {
	Epoch uint64
	TopN  int
	// Symbols, when set, replaces the top-N query with these symbols.
	Symbols []string
	// Extra symbols are quoted as well when the main query misses them.
	Extra    []string
	provider market.Provider
}

// Run performs the provider call.
func (f *Fetch) Run(ctx context.Context) Result {
	start := time.Now()
	sf, bySymbol := f.provider.(market.SymbolFetcher)

	var (
		tickers []market.TickerSnapshot
		err     error
	)
	switch {
	case len(f.Symbols) > 0 && !bySymbol:
		err = fmt.Errorf("%s cannot fetch by symbol", f.provider.Name())
	case len(f.Symbols) > 0:
		tickers, err = sf.FetchSymbols(ctx, f.Symbols)
	default:
		tickers, err = f.provider.FetchTop(ctx, f.TopN)
	}

	r := Result{Epoch: f.Epoch, Tickers: tickers, Err: err}
	if err == nil && bySymbol {
		if missing := missingSymbols(f.Extra, tickers); len(missing) > 0 {
			r.Extra, r.ExtraErr = sf.FetchSymbols(ctx, missing)
		}
	}
	r.At = time.Now()
	r.Duration = time.Since(start)
	return r
}

func missingSymbols(want []string, have []market.TickerSnapshot) []string {
	if len(want) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(have))
	for _, t := range have {
		seen[t.Symbol] = true
	}
	var out []string
	for _, s := range want {
		if !seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// Result is the outcome of a Fetch. Extra holds quotes for symbols outside
// the displayed rows; they feed alerts only.
type Result struct {
	Epoch    uint64
	Tickers  []market.TickerSnapshot
	Err      error
	Extra    []market.TickerSnapshot
	ExtraErr error
	At       time.Time
	Duration time.Duration
}

// Scheduler decides when to fetch. It is not safe for concurrent use: all
// methods run on the single event loop, which makes the in-flight
// check-and-set atomic. At most one Fetch is outstanding at any time;
// requests made while one is in flight are dropped, not queued.
//
// The recurring timer itself belongs to the event loop (tea.Tick, a
// time.Ticker). Each timer firing is reported through Tick with the epoch it
// was armed under, so timers armed before Stop are ignored.
type Scheduler struct {
	provider market.Provider
	interval time.Duration
	topN     int
	symbols  []string
	extra    []string

	configured bool
	running    bool
	inFlight   bool
	epoch      uint64

	// restartPending is set when Start had to coalesce its immediate fetch
	// behind a fetch issued under an older epoch.
	restartPending bool
}

// NewScheduler creates an unconfigured scheduler for p.
func NewScheduler(p market.Provider) *Scheduler {
	return &Scheduler{provider: p}
}

// Configure sets the polling interval and row count. intervalSeconds 0
// means fetch once with no recurring timer.
func (s *Scheduler) Configure(intervalSeconds, topN int) error {
	if intervalSeconds < 0 {
		return &config.ConfigurationError{Field: "refresh_seconds", Reason: fmt.Sprintf("must be >= 0, got %d", intervalSeconds)}
	}
	if topN < 1 {
		return &config.ConfigurationError{Field: "top", Reason: fmt.Sprintf("must be >= 1, got %d", topN)}
	}
	s.interval = time.Duration(intervalSeconds) * time.Second
	s.topN = topN
	s.configured = true
	return nil
}

// Track switches the table from the top N to exactly these symbols. An
// empty list restores the top-N query.
func (s *Scheduler) Track(symbols []string) {
	s.symbols = append([]string(nil), symbols...)
}

// Watch sets symbols that must be quoted on every fetch even when they are
// not among the displayed rows.
func (s *Scheduler) Watch(symbols []string) {
	s.extra = append([]string(nil), symbols...)
}

// Start begins a new epoch and returns the immediate fetch. The fetch is nil
// when an older fetch is still in flight; the new epoch's first fetch is then
// issued from Complete.
func (s *Scheduler) Start() (*Fetch, error) {
	if !s.configured {
		return nil, &config.ConfigurationError{Field: "scheduler", Reason: "Start called before Configure"}
	}
	s.epoch++
	s.running = true
	f := s.begin()
	s.restartPending = f == nil
	return f, nil
}

// Tick handles a timer firing armed under epoch. Stale or coalesced ticks
// return nil.
func (s *Scheduler) Tick(epoch uint64) *Fetch {
	if !s.running || epoch != s.epoch || s.interval == 0 {
		return nil
	}
	return s.begin()
}

// RequestImmediateRefresh returns a fetch unless one is already in flight or
// the scheduler is stopped.
func (s *Scheduler) RequestImmediateRefresh() *Fetch {
	if !s.running {
		return nil
	}
	return s.begin()
}

// Complete records the end of the outstanding fetch. apply reports whether r
// belongs to the current epoch and should update the dashboard. next is a
// follow-up fetch owed to a Start that was coalesced behind r.
func (s *Scheduler) Complete(r Result) (apply bool, next *Fetch) {
	s.inFlight = false
	apply = s.running && r.Epoch == s.epoch
	if s.running && s.restartPending && r.Epoch != s.epoch {
		s.restartPending = false
		next = s.begin()
	}
	return apply, next
}

// Stop cancels the recurring timer by advancing the epoch. A fetch already
// in flight runs to completion but its result is discarded.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	s.running = false
	s.restartPending = false
	s.epoch++
}

// Interval returns the recurring interval; 0 means no recurring timer.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// TopN returns the configured row count.
func (s *Scheduler) TopN() int { return s.topN }

// Recurring reports whether the event loop should arm a timer.
func (s *Scheduler) Recurring() bool { return s.running && s.interval > 0 }

// Epoch returns the current epoch for arming timers.
func (s *Scheduler) Epoch() uint64 { return s.epoch }

// InFlight reports whether a fetch is outstanding.
func (s *Scheduler) InFlight() bool { return s.inFlight }

// Running reports whether Start has been called without a later Stop.
func (s *Scheduler) Running() bool { return s.running }

func (s *Scheduler) begin() *Fetch {
	if s.inFlight {
		return nil
	}
	s.inFlight = true
	return &Fetch{Epoch: s.epoch, TopN: s.topN, Symbols: s.symbols, Extra: s.extra, provider: s.provider}
}
