package dashboard

import (
	"reflect"
	"testing"

	"coinmon/internal/market"
)

func alertRows(ts ...market.TickerSnapshot) []Row {
	rows := make([]Row, len(ts))
	for i, t := range ts {
		rows[i] = Row{Ticker: t}
	}
	return rows
}

func TestAlertEvaluatorEdgeTriggered(t *testing.T) {
	a := NewAlertEvaluator(AlertRules{PriceAbove: map[string]float64{"BTC": 45000}})
	b := btc()

	got := a.Evaluate(alertRows(b))
	want := []string{"Bitcoin (BTC): 50,000.00 USD > 45,000.00 USD"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("first Evaluate = %q, want %q", got, want)
	}
	if got := a.Evaluate(alertRows(b)); len(got) != 0 {
		t.Errorf("repeat Evaluate = %q, want nothing", got)
	}

	// Missing from a snapshot does not clear the rule.
	a.Evaluate(alertRows(eth()))
	if got := a.Evaluate(alertRows(b)); len(got) != 0 {
		t.Errorf("after absence = %q, want nothing", got)
	}

	// Dropping below clears; rising again fires again.
	b.Price = 40000
	a.Evaluate(alertRows(b))
	b.Price = 46000
	if got := a.Evaluate(alertRows(b)); len(got) != 1 {
		t.Errorf("after re-crossing = %q, want one alert", got)
	}
}

func TestAlertEvaluatorPercentChange(t *testing.T) {
	a := NewAlertEvaluator(AlertRules{PercentChange: 3})
	e := eth()
	e.PercentChange1h = 3.5

	// BTC is down 5% over 24h; only rises fire.
	got := a.Evaluate(alertRows(btc(), e))
	want := []string{
		"Ethereum (ETH) rose +4.00% in the last 24 hours",
		"Ethereum (ETH) rose +3.50% in the last hour",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Evaluate =\n  %q\nwant\n  %q", got, want)
	}
}

func TestAlertEvaluatorIgnoresDrops(t *testing.T) {
	a := NewAlertEvaluator(AlertRules{PercentChange: 3})
	e := eth()
	e.PercentChange1h = -8
	e.PercentChange24h = -12
	if got := a.Evaluate(alertRows(e)); len(got) != 0 {
		t.Errorf("drops fired %q", got)
	}
}

func TestAlertEvaluatorDisabled(t *testing.T) {
	a := NewAlertEvaluator(AlertRules{})
	if got := a.Evaluate(alertRows(btc())); got != nil {
		t.Errorf("Evaluate with no rules = %q", got)
	}
}
