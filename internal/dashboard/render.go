package dashboard

import (
	"fmt"
	"strconv"
	"time"
)

// Severity grades a notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

// Cell is one formatted table value with its direction tag.
type Cell struct {
	Text string
	Dir  Direction
}

// TableRow is one rendered row.
type TableRow struct {
	Symbol  string
	Watched bool
	Cells   []Cell
}

// Frame is a render instruction: the whole table plus status.
type Frame struct {
	Headers     []string
	Rows        []TableRow
	Selected    int // -1 when nothing is selected
	Sort        SortMode
	Refreshing  bool
	RefreshedAt time.Time
	LastError   string
	DetailOpen  bool
}

// Field is one labelled value in the detail view.
type Field struct {
	Label string
	Value string
	Dir   Direction
}

// Renderer is the terminal layer. The controller calls it from the event
// loop only.
type Renderer interface {
	Render(f Frame)
	RenderDetail(symbol string, fields []Field)
	Notify(msg string, sev Severity)
}

// Headers returns the table column labels for quote currency q.
func Headers(q string) []string {
	return []string{
		"#",
		"Name",
		"Symbol",
		"% 1h",
		"% 24h",
		"% 7d",
		fmt.Sprintf("Price (%s)", q),
		fmt.Sprintf("Market Cap (%s)", q),
		"Circulating Supply",
		"Circ. % Max",
		fmt.Sprintf("Volume (24h/%s)", q),
	}
}

func plain(s string) Cell { return Cell{Text: s} }

func directional(v float64) Cell {
	d := FormatDirectional(v)
	return Cell{Text: d.Text, Dir: d.Dir}
}

// tableRow formats r for the table.
func tableRow(r Row, watched bool) TableRow {
	t, m := r.Ticker, r.Metrics
	return TableRow{
		Symbol:  t.Symbol,
		Watched: watched,
		Cells: []Cell{
			plain(strconv.Itoa(t.Rank)),
			plain(t.Name),
			plain(t.Symbol),
			directional(t.PercentChange1h),
			directional(t.PercentChange24h),
			directional(t.PercentChange7d),
			plain(FormatPrice(t.Price)),
			plain(FormatMagnitude(t.MarketCap)),
			plain(FormatMagnitude(t.AvailableSupply)),
			plain(FormatPercent(m.SupplyCirculatingShare)),
			plain(FormatMagnitude(t.Volume24h)),
		},
	}
}

// detailFields lists every raw and derived value of r. raw selects plain
// numbers over magnitude abbreviations.
func detailFields(r Row, raw bool) []Field {
	t, m := r.Ticker, r.Metrics
	q := t.Quote
	amount := func(v float64) string {
		if raw {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
		return FormatMagnitude(v)
	}
	money := func(v float64) string {
		if raw {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
		return FormatPrice(v) + " " + q
	}
	pct := func(label string, v float64) Field {
		d := FormatDirectional(v)
		return Field{Label: label, Value: d.Text, Dir: d.Dir}
	}

	updated := "-"
	if !t.LastUpdated.IsZero() {
		updated = t.LastUpdated.UTC().Format(time.RFC3339)
	}
	maxSupply := amount(t.MaxSupply)
	if t.MaxSupply == 0 {
		maxSupply = "uncapped"
	}

	return []Field{
		{Label: "Name", Value: t.Name},
		{Label: "Symbol", Value: t.Symbol},
		{Label: "Rank", Value: strconv.Itoa(t.Rank)},
		{Label: "Price", Value: money(t.Price)},
		{Label: "Price (BTC)", Value: strconv.FormatFloat(t.PriceBTC, 'f', 8, 64)},
		{Label: "Market Cap", Value: money(t.MarketCap)},
		{Label: "Volume 24h", Value: money(t.Volume24h)},
		{Label: "Available Supply", Value: amount(t.AvailableSupply)},
		{Label: "Total Supply", Value: amount(t.TotalSupply)},
		{Label: "Max Supply", Value: maxSupply},
		{Label: "Effective Max Supply", Value: amount(m.EffectiveMaxSupply)},
		pct("% 1h", t.PercentChange1h),
		pct("% 24h", t.PercentChange24h),
		pct("% 7d", t.PercentChange7d),
		{Label: "Price 1h Ago", Value: money(m.PriceOneHourAgo)},
		{Label: "Price 24h Ago", Value: money(m.Price24hAgo)},
		{Label: "Price 7d Ago", Value: money(m.Price7dAgo)},
		{Label: "Volume / Market Cap", Value: FormatPercent(m.CirculatingVolumeShare24h)},
		{Label: "Units Traded 24h", Value: amount(m.ImpliedUnitsTraded24h)},
		{Label: "Units Traded % Supply", Value: FormatPercent(m.ImpliedUnitsTraded24hShare)},
		{Label: "Untraded Supply 24h", Value: amount(m.UntradedSupply24h)},
		{Label: "Supply Issued % Max", Value: FormatPercent(m.SupplyIssuedShare)},
		{Label: "Supply Circulating % Max", Value: FormatPercent(m.SupplyCirculatingShare)},
		{Label: "Last Updated", Value: updated},
	}
}
