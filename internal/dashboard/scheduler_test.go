package dashboard

import (
	"context"
	"errors"
	"testing"

	"coinmon/internal/config"
	"coinmon/internal/market"
)

// countingProvider records FetchTop calls and returns rows or err.
type countingProvider struct {
	calls int
	rows  []market.TickerSnapshot
	err   error
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) FetchTop(_ context.Context, n int) ([]market.TickerSnapshot, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if n < len(p.rows) {
		return p.rows[:n], nil
	}
	return p.rows, nil
}

func newTestScheduler(t *testing.T, p market.Provider, interval int) *Scheduler {
	t.Helper()
	s := NewScheduler(p)
	if err := s.Configure(interval, 10); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return s
}

func TestSchedulerConfigureRejectsNegativeInterval(t *testing.T) {
	s := NewScheduler(&countingProvider{})
	err := s.Configure(-1, 10)
	var ce *config.ConfigurationError
	if !errors.As(err, &ce) || ce.Field != "refresh_seconds" {
		t.Fatalf("Configure(-1) = %v, want ConfigurationError on refresh_seconds", err)
	}
	if _, err := s.Start(); err == nil {
		t.Error("Start should refuse to run unconfigured")
	}
	if err := s.Configure(60, 0); err == nil {
		t.Error("Configure(topN=0) should fail")
	}
}

func TestSchedulerCoalescesImmediateRefresh(t *testing.T) {
	p := &countingProvider{}
	s := newTestScheduler(t, p, 60)

	f, err := s.Start()
	if err != nil || f == nil {
		t.Fatalf("Start = %v, %v", f, err)
	}
	r := f.Run(context.Background())
	if apply, _ := s.Complete(r); !apply {
		t.Fatal("first result should apply")
	}

	var fetches []*Fetch
	for _, f := range []*Fetch{s.RequestImmediateRefresh(), s.RequestImmediateRefresh()} {
		if f != nil {
			fetches = append(fetches, f)
		}
	}
	for _, f := range fetches {
		f.Run(context.Background())
	}
	if len(fetches) != 1 {
		t.Fatalf("got %d fetches from two immediate requests, want 1", len(fetches))
	}
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want 2", p.calls)
	}
	if !s.InFlight() {
		t.Error("fetch should still be in flight until Complete")
	}
	if s.Tick(s.Epoch()) != nil {
		t.Error("Tick while in flight should coalesce")
	}
}

func TestSchedulerTickEpoch(t *testing.T) {
	s := newTestScheduler(t, &countingProvider{}, 30)
	f, _ := s.Start()
	s.Complete(f.Run(context.Background()))

	epoch := s.Epoch()
	if s.Tick(epoch-1) != nil {
		t.Error("stale tick should be ignored")
	}
	if s.Tick(epoch) == nil {
		t.Error("current tick should fetch")
	}
}

func TestSchedulerOnceMode(t *testing.T) {
	s := newTestScheduler(t, &countingProvider{}, 0)
	f, _ := s.Start()
	if s.Recurring() {
		t.Error("interval 0 should not recur")
	}
	s.Complete(f.Run(context.Background()))
	if s.Tick(s.Epoch()) != nil {
		t.Error("Tick should do nothing without an interval")
	}
}

func TestSchedulerStopDiscardsInFlight(t *testing.T) {
	s := newTestScheduler(t, &countingProvider{}, 30)
	f, _ := s.Start()
	armed := s.Epoch()
	s.Stop()

	apply, next := s.Complete(f.Run(context.Background()))
	if apply || next != nil {
		t.Errorf("Complete after Stop = %v, %v; want discarded", apply, next)
	}
	if s.Tick(armed) != nil {
		t.Error("timer armed before Stop should not fetch")
	}
	if s.RequestImmediateRefresh() != nil {
		t.Error("stopped scheduler should not fetch")
	}
}

func TestSchedulerRestartBehindInFlight(t *testing.T) {
	s := newTestScheduler(t, &countingProvider{}, 30)
	old, _ := s.Start()
	s.Stop()

	f, err := s.Start()
	if err != nil {
		t.Fatal(err)
	}
	if f != nil {
		t.Fatal("Start should coalesce behind the old in-flight fetch")
	}

	apply, next := s.Complete(old.Run(context.Background()))
	if apply {
		t.Error("old epoch result must not apply")
	}
	if next == nil || next.Epoch != s.Epoch() {
		t.Fatalf("expected the restarted epoch's first fetch, got %+v", next)
	}
	if apply, _ := s.Complete(next.Run(context.Background())); !apply {
		t.Error("restarted fetch should apply")
	}
}

func TestSchedulerFailureKeepsTimer(t *testing.T) {
	p := &countingProvider{err: errors.New("boom")}
	s := newTestScheduler(t, p, 30)
	f, _ := s.Start()
	r := f.Run(context.Background())
	if r.Err == nil {
		t.Fatal("expected error result")
	}
	if apply, _ := s.Complete(r); !apply {
		t.Error("error result of current epoch should be applied (reported)")
	}
	if !s.Recurring() || s.Tick(s.Epoch()) == nil {
		t.Error("failure must not disarm the timer")
	}
}
