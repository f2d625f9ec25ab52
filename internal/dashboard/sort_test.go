package dashboard

import (
	"testing"

	"coinmon/internal/market"
)

func symbols(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Ticker.Symbol
	}
	return out
}

func TestSortRows(t *testing.T) {
	tests := []struct {
		mode SortMode
		want []string
	}{
		{SortRank, []string{"BTC", "ETH", "XRP"}},
		{SortChange, []string{"ETH", "XRP", "BTC"}},
		{SortVolume, []string{"BTC", "ETH", "XRP"}},
		{SortMarketCap, []string{"BTC", "ETH", "XRP"}},
	}
	for _, tt := range tests {
		rows := alertRows(xrp(), eth(), btc())
		SortRows(rows, tt.mode)
		got := symbols(rows)
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SortRows(%s) = %v, want %v", SortModeLabel(tt.mode), got, tt.want)
				break
			}
		}
	}
}

func TestSortRowsTieBreaksOnRank(t *testing.T) {
	a := market.TickerSnapshot{Symbol: "A", Rank: 2, Volume24h: 5}
	b := market.TickerSnapshot{Symbol: "B", Rank: 1, Volume24h: 5}
	rows := alertRows(a, b)
	SortRows(rows, SortVolume)
	if rows[0].Ticker.Symbol != "B" {
		t.Errorf("tie order = %v, want B first", symbols(rows))
	}
}

func TestParseSortMode(t *testing.T) {
	for in, want := range map[string]SortMode{
		"rank": SortRank, "change": SortChange, "volume": SortVolume,
		"marketcap": SortMarketCap, "bogus": SortRank,
	} {
		if got := ParseSortMode(in); got != want {
			t.Errorf("ParseSortMode(%q) = %v, want %v", in, got, want)
		}
	}
}
