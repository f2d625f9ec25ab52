// Package metrics derives display metrics from a raw ticker snapshot:
// volume and supply ratios, implied units traded and back-solved prior
// prices. Every function is pure.
package metrics

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"coinmon/internal/market"
)

// Derived holds the values computed from one snapshot. All *Share fields are
// percentages rounded to two decimals.
type Derived struct {
	CirculatingVolumeShare24h  float64 // volume24h / marketCap * 100
	ImpliedUnitsTraded24h      float64 // volume24h / price
	ImpliedUnitsTraded24hShare float64 // impliedUnitsTraded24h / availableSupply * 100
	UntradedSupply24h          float64 // availableSupply - impliedUnitsTraded24h, floored at 0

	EffectiveMaxSupply     float64 // totalSupply when maxSupply is 0
	SupplyIssuedShare      float64 // totalSupply / effectiveMaxSupply * 100
	SupplyCirculatingShare float64 // availableSupply / effectiveMaxSupply * 100

	PriceOneHourAgo float64
	Price24hAgo     float64
	Price7dAgo      float64
}

// MalformedFieldError reports a numeric field that was not finite (or was
// negative where only non-negative values make sense) and was replaced by 0.
type MalformedFieldError struct {
	Symbol string
	Field  string
	Value  float64
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("%s: malformed %s (%v), using 0", e.Symbol, e.Field, e.Value)
}

// Sanitize returns a copy of t with every malformed numeric field replaced by
// 0, plus one MalformedFieldError per replaced field. Percent changes may be
// negative; all other numbers must be finite and non-negative.
func Sanitize(t market.TickerSnapshot) (market.TickerSnapshot, []error) {
	var errs []error
	nonNeg := func(name string, v *float64) {
		if !finite(*v) || *v < 0 {
			errs = append(errs, &MalformedFieldError{Symbol: t.Symbol, Field: name, Value: *v})
			*v = 0
		}
	}
	signed := func(name string, v *float64) {
		if !finite(*v) {
			errs = append(errs, &MalformedFieldError{Symbol: t.Symbol, Field: name, Value: *v})
			*v = 0
		}
	}

	nonNeg("price", &t.Price)
	nonNeg("price_btc", &t.PriceBTC)
	nonNeg("market_cap", &t.MarketCap)
	nonNeg("volume_24h", &t.Volume24h)
	nonNeg("available_supply", &t.AvailableSupply)
	nonNeg("total_supply", &t.TotalSupply)
	nonNeg("max_supply", &t.MaxSupply)
	signed("percent_change_1h", &t.PercentChange1h)
	signed("percent_change_24h", &t.PercentChange24h)
	signed("percent_change_7d", &t.PercentChange7d)
	return t, errs
}

// Calculate derives metrics from t. Ratios whose denominator is zero or not
// a finite positive number are reported as 0. Callers that want malformed
// input reported should run Sanitize first; Calculate itself never fails.
func Calculate(t market.TickerSnapshot) Derived {
	var d Derived

	d.EffectiveMaxSupply = EffectiveMaxSupply(t.MaxSupply, t.TotalSupply)

	d.CirculatingVolumeShare24h = Round2(percent(t.Volume24h, t.MarketCap))
	d.ImpliedUnitsTraded24h = ratio(t.Volume24h, t.Price)
	d.ImpliedUnitsTraded24hShare = Round2(percent(d.ImpliedUnitsTraded24h, t.AvailableSupply))
	if finite(t.AvailableSupply) && t.AvailableSupply > d.ImpliedUnitsTraded24h {
		d.UntradedSupply24h = t.AvailableSupply - d.ImpliedUnitsTraded24h
	}

	d.SupplyIssuedShare = Round2(percent(t.TotalSupply, d.EffectiveMaxSupply))
	d.SupplyCirculatingShare = Round2(percent(t.AvailableSupply, d.EffectiveMaxSupply))

	d.PriceOneHourAgo = PriorPrice(t.Price, t.PercentChange1h)
	d.Price24hAgo = PriorPrice(t.Price, t.PercentChange24h)
	d.Price7dAgo = PriorPrice(t.Price, t.PercentChange7d)
	return d
}

// EffectiveMaxSupply returns maxSupply, or totalSupply when maxSupply is 0
// (uncapped issuance). Non-finite inputs count as 0.
func EffectiveMaxSupply(maxSupply, totalSupply float64) float64 {
	if finite(maxSupply) && maxSupply > 0 {
		return maxSupply
	}
	if finite(totalSupply) && totalSupply > 0 {
		return totalSupply
	}
	return 0
}

// PriorPrice back-solves the price before a pct percent change using the
// dashboard's historical formula, price / (100 + pct) * 100. It returns 0
// when 100 + pct is not positive.
func PriorPrice(price, pct float64) float64 {
	if !finite(price) || !finite(pct) || price < 0 {
		return 0
	}
	base := 100 + pct
	if base <= 0 {
		return 0
	}
	return (price / base) * 100
}

// Round2 rounds v to two decimals, half away from zero. Non-finite values
// round to 0.
func Round2(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func ratio(num, den float64) float64 {
	if !finite(num) || !finite(den) || den <= 0 || num < 0 {
		return 0
	}
	return num / den
}

func percent(num, den float64) float64 {
	return ratio(num, den) * 100
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
