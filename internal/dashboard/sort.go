package dashboard

import "sort"

// SortMode selects the table order. Rank follows the provider.
type SortMode int

const (
	SortRank      SortMode = iota // provider rank (default)
	SortChange                    // 24h change, best first
	SortVolume                    // 24h volume, largest first
	SortMarketCap                 // market cap, largest first
)

// SortModeCount is the number of sort modes for cycling.
const SortModeCount = 4

// SortModeLabel returns a short label for display.
func SortModeLabel(mode SortMode) string {
	switch mode {
	case SortChange:
		return "%24h"
	case SortVolume:
		return "volume"
	case SortMarketCap:
		return "mcap"
	default:
		return "rank"
	}
}

// ParseSortMode maps a config value ("rank", "change", "volume",
// "marketcap") to a SortMode. Unknown values map to SortRank.
func ParseSortMode(s string) SortMode {
	switch s {
	case "change":
		return SortChange
	case "volume":
		return SortVolume
	case "marketcap":
		return SortMarketCap
	default:
		return SortRank
	}
}

// SortRows orders rows in place. Ties fall back to rank so the order is
// deterministic.
func SortRows(rows []Row, mode SortMode) {
	byRank := func(a, b *Row) bool { return a.Ticker.Rank < b.Ticker.Rank }
	var less func(a, b *Row) bool
	switch mode {
	case SortChange:
		less = func(a, b *Row) bool {
			if a.Ticker.PercentChange24h != b.Ticker.PercentChange24h {
				return a.Ticker.PercentChange24h > b.Ticker.PercentChange24h
			}
			return byRank(a, b)
		}
	case SortVolume:
		less = func(a, b *Row) bool {
			if a.Ticker.Volume24h != b.Ticker.Volume24h {
				return a.Ticker.Volume24h > b.Ticker.Volume24h
			}
			return byRank(a, b)
		}
	case SortMarketCap:
		less = func(a, b *Row) bool {
			if a.Ticker.MarketCap != b.Ticker.MarketCap {
				return a.Ticker.MarketCap > b.Ticker.MarketCap
			}
			return byRank(a, b)
		}
	default:
		less = byRank
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) })
}
