package dashboard

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	return humanize.Comma(int64(n))
}

// FormatCurrency formats v with two decimals and comma grouping, e.g.
// 1234567.891 -> "1,234,567.89". Non-finite values render as "0.00".
func FormatCurrency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	return humanize.FormatFloat("#,###.##", v)
}

// magnitudes is the abbreviation ladder, smallest first.
var magnitudes = []struct {
	scale float64
	label string
}{
	{1e2, "hundred"},
	{1e3, "thousand"},
	{1e6, "million"},
	{1e9, "billion"},
}

// FormatMagnitude abbreviates v with the largest ladder unit whose scaled
// value is at least 1, to two decimals: 1_500_000 -> "1.50 million".
// Values below 100 clamp to "hundred" (50 -> "0.50 hundred") and values of a
// trillion or more clamp to "billion" (1e12 -> "1000.00 billion"). Zero and
// non-finite values render as "0"; negatives keep their sign.
func FormatMagnitude(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	unit := magnitudes[0]
	for _, m := range magnitudes[1:] {
		if v/m.scale >= 1 {
			unit = m
		}
	}
	return fmt.Sprintf("%s%.2f %s", sign, v/unit.scale, unit.label)
}

// FormatPercent formats a percentage with two decimals and a % suffix.
func FormatPercent(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		p = 0
	}
	return fmt.Sprintf("%.2f%%", p)
}

// FormatPrice formats a price with two decimals and grouping. Sub-cent
// prices keep up to eight significant decimals so small caps stay readable.
func FormatPrice(p float64) string {
	if p > 0 && p < 0.01 {
		return humanize.FormatFloat("#,###.########", p)
	}
	return FormatCurrency(p)
}

// ---------------------------------------------------------------------------
// Directional classification
// ---------------------------------------------------------------------------

// Direction classifies a value's sign for colouring by the renderer.
type Direction int

const (
	Neutral Direction = iota
	Positive
	Negative
)

func (d Direction) String() string {
	switch d {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "neutral"
	}
}

// Classify returns the direction of v. Exactly 0 and non-finite values are
// neutral.
func Classify(v float64) Direction {
	switch {
	case math.IsNaN(v):
		return Neutral
	case v > 0:
		return Positive
	case v < 0:
		return Negative
	default:
		return Neutral
	}
}

// Directional is a formatted value tagged with its direction.
type Directional struct {
	Text string
	Dir  Direction
}

// FormatDirectional formats a percent change and tags it with its sign.
func FormatDirectional(v float64) Directional {
	if math.IsInf(v, 0) {
		return Directional{Text: FormatPercent(0), Dir: Neutral}
	}
	return Directional{Text: FormatPercent(v), Dir: Classify(v)}
}
