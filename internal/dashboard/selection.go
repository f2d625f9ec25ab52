package dashboard

// PageStride is how many rows page up/down move the selection.
const PageStride = 10

// Reconcile maps a selection made on an old row set onto a new one. If
// prevSymbol is still present its new position wins; otherwise prevIndex is
// clamped into [0, n-1]. It returns -1 when n is 0. indexOf returns -1 for
// unknown symbols.
func Reconcile(prevSymbol string, prevIndex int, indexOf func(string) int, n int) int {
	if n <= 0 {
		return -1
	}
	if prevSymbol != "" {
		if i := indexOf(prevSymbol); i >= 0 && i < n {
			return i
		}
	}
	return clamp(prevIndex, 0, n-1)
}

// SelectionTracker remembers the highlighted row by symbol so that it
// survives reordering between refreshes. Indices are header-less: the first
// data row is 0.
type SelectionTracker struct {
	symbol string
	index  int
}

// NewSelectionTracker returns a tracker with nothing selected.
func NewSelectionTracker() *SelectionTracker {
	return &SelectionTracker{index: -1}
}

// Symbol returns the selected symbol, or "" when nothing is selected.
func (t *SelectionTracker) Symbol() string { return t.symbol }

// Index returns the selected position, or -1.
func (t *SelectionTracker) Index() int { return t.index }

// Reconcile re-resolves the selection against c and returns the new index.
// Calling it twice on an unchanged cache yields the same index.
func (t *SelectionTracker) Reconcile(c *TickerCache) int {
	n := c.Count()
	t.index = Reconcile(t.symbol, t.index, c.IndexOf, n)
	t.syncSymbol(c)
	return t.index
}

// Select moves the selection to position i, clamped into the row set.
func (t *SelectionTracker) Select(c *TickerCache, i int) int {
	n := c.Count()
	if n == 0 {
		t.index, t.symbol = -1, ""
		return -1
	}
	t.index = clamp(i, 0, n-1)
	t.syncSymbol(c)
	return t.index
}

// SelectSymbol selects symbol if it is in c. It reports whether it was.
func (t *SelectionTracker) SelectSymbol(c *TickerCache, symbol string) bool {
	i := c.IndexOf(symbol)
	if i < 0 {
		return false
	}
	t.index, t.symbol = i, symbol
	return true
}

// Move shifts the selection by delta rows, clamped at both ends. With no
// current selection it starts from the first row.
func (t *SelectionTracker) Move(c *TickerCache, delta int) int {
	if t.index < 0 {
		return t.Select(c, 0)
	}
	return t.Select(c, t.index+delta)
}

// PageUp moves the selection PageStride rows up.
func (t *SelectionTracker) PageUp(c *TickerCache) int { return t.Move(c, -PageStride) }

// PageDown moves the selection PageStride rows down.
func (t *SelectionTracker) PageDown(c *TickerCache) int { return t.Move(c, PageStride) }

func (t *SelectionTracker) syncSymbol(c *TickerCache) {
	if row, ok := c.LookupByIndex(t.index); ok {
		t.symbol = row.Ticker.Symbol
		return
	}
	t.symbol = ""
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
