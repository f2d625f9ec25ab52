package dashboard

import (
	"fmt"
	"sort"
)

// AlertRules are thresholds checked after every applied refresh.
type AlertRules struct {
	PriceAbove    map[string]float64 // symbol -> price threshold
	PercentChange float64            // 1h/24h rise threshold; 0 disables
}

type alertKey struct {
	symbol string
	rule   string
}

// AlertEvaluator fires a message when a rule goes from unmet to met. A rule
// must clear before it can fire again.
type AlertEvaluator struct {
	rules  AlertRules
	active map[alertKey]bool
}

// NewAlertEvaluator creates an evaluator for rules.
func NewAlertEvaluator(rules AlertRules) *AlertEvaluator {
	return &AlertEvaluator{rules: rules, active: make(map[alertKey]bool)}
}

// Evaluate checks rows and returns messages for newly met rules, in row
// order.
func (a *AlertEvaluator) Evaluate(rows []Row) []string {
	if len(a.rules.PriceAbove) == 0 && a.rules.PercentChange <= 0 {
		return nil
	}

	met := make(map[alertKey]string)
	order := make(map[alertKey]int)
	for i, r := range rows {
		t := r.Ticker
		if limit, ok := a.rules.PriceAbove[t.Symbol]; ok && t.Price > limit {
			k := alertKey{t.Symbol, "price"}
			met[k] = fmt.Sprintf("%s (%s): %s %s > %s %s",
				t.Name, t.Symbol, FormatPrice(t.Price), t.Quote, FormatPrice(limit), t.Quote)
			order[k] = i
		}
		if p := a.rules.PercentChange; p > 0 {
			if t.PercentChange1h >= p {
				k := alertKey{t.Symbol, "1h"}
				met[k] = fmt.Sprintf("%s (%s) rose %s in the last hour", t.Name, t.Symbol, signedPercent(t.PercentChange1h))
				order[k] = i
			}
			if t.PercentChange24h >= p {
				k := alertKey{t.Symbol, "24h"}
				met[k] = fmt.Sprintf("%s (%s) rose %s in the last 24 hours", t.Name, t.Symbol, signedPercent(t.PercentChange24h))
				order[k] = i
			}
		}
	}

	var fired []alertKey
	for k := range met {
		if !a.active[k] {
			fired = append(fired, k)
		}
	}
	// Symbols missing from this snapshot keep their state; only rows we
	// actually saw can clear.
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		seen[r.Ticker.Symbol] = true
	}
	for k := range a.active {
		if _, still := met[k]; !still && seen[k.symbol] {
			delete(a.active, k)
		}
	}
	for k := range met {
		a.active[k] = true
	}

	sort.Slice(fired, func(i, j int) bool {
		if order[fired[i]] != order[fired[j]] {
			return order[fired[i]] < order[fired[j]]
		}
		return fired[i].rule > fired[j].rule // price, then 24h, then 1h
	})
	msgs := make([]string, len(fired))
	for i, k := range fired {
		msgs[i] = met[k]
	}
	return msgs
}

func signedPercent(p float64) string {
	if p > 0 {
		return "+" + FormatPercent(p)
	}
	return FormatPercent(p)
}
