package dashboard

import (
	"sync"

	"coinmon/internal/market"
	"coinmon/internal/metrics"
)

// Row pairs a snapshot with the metrics derived from it.
type Row struct {
	Ticker  market.TickerSnapshot
	Metrics metrics.Derived
}

// TickerCache holds the latest row set, addressable by symbol and by
// position. The controller is the only writer; renderers only read.
type TickerCache struct {
	mu    sync.RWMutex
	rows  []Row
	index map[string]int // symbol -> position
}

// NewTickerCache returns an empty cache.
func NewTickerCache() *TickerCache {
	return &TickerCache{index: make(map[string]int)}
}

// ReplaceAll swaps the whole row set. The slice is copied. If a symbol
// appears twice only its first position is addressable by symbol.
func (c *TickerCache) ReplaceAll(rows []Row) {
	cp := make([]Row, len(rows))
	copy(cp, rows)
	idx := make(map[string]int, len(cp))
	for i := range cp {
		if _, dup := idx[cp[i].Ticker.Symbol]; !dup {
			idx[cp[i].Ticker.Symbol] = i
		}
	}

	c.mu.Lock()
	c.rows = cp
	c.index = idx
	c.mu.Unlock()
}

// LookupBySymbol returns the row for symbol and its position.
func (c *TickerCache) LookupBySymbol(symbol string) (Row, int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[symbol]
	if !ok {
		return Row{}, -1, false
	}
	return c.rows[i], i, true
}

// IndexOf returns the position of symbol, or -1.
func (c *TickerCache) IndexOf(symbol string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i, ok := c.index[symbol]; ok {
		return i
	}
	return -1
}

// LookupByIndex returns the row at position i.
func (c *TickerCache) LookupByIndex(i int) (Row, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.rows) {
		return Row{}, false
	}
	return c.rows[i], true
}

// Count returns the number of rows.
func (c *TickerCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// Rows returns a copy of the row set in display order.
func (c *TickerCache) Rows() []Row {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Row, len(c.rows))
	copy(out, c.rows)
	return out
}
