package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"coinmon/internal/dashboard"
)

// Styles.
var (
	symbolStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	symbolHlStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))  // brighter blue for highlight
	symbolWlStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208")) // orange for watchlist
	symbolWlHlStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")) // brighter orange for watchlist+highlight
	gainStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	colHeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	priceStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	labelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	detailBarStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	errorStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1"))
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3"))
	highlightBG     = lipgloss.Color("236") // dark grey background
)

// hlStyle returns a copy of s with the highlight background applied when hl is true.
func hlStyle(s lipgloss.Style, hl bool) lipgloss.Style {
	if hl {
		return s.Background(highlightBG)
	}
	return s
}

func dirStyle(d dashboard.Direction) lipgloss.Style {
	switch d {
	case dashboard.Positive:
		return gainStyle
	case dashboard.Negative:
		return lossStyle
	default:
		return priceStyle
	}
}

// noticeTTL is how long a notification stays in the footer.
const noticeTTL = 10 * time.Second

// screen is the terminal renderer. The controller calls it from Update, and
// View reads it from the same goroutine.
type screen struct {
	frame        dashboard.Frame
	detailSymbol string
	detail       []dashboard.Field

	notice   string
	severity dashboard.Severity
	noticeAt time.Time
}

// Compile-time interface check.
var _ dashboard.Renderer = (*screen)(nil)

func newScreen() *screen {
	return &screen{frame: dashboard.Frame{Selected: -1}}
}

func (s *screen) Render(f dashboard.Frame) {
	s.frame = f
	if !f.DetailOpen {
		s.detail = nil
		s.detailSymbol = ""
	}
}

func (s *screen) RenderDetail(symbol string, fields []dashboard.Field) {
	s.detailSymbol = symbol
	s.detail = fields
	s.frame.DetailOpen = true
}

func (s *screen) Notify(msg string, sev dashboard.Severity) {
	s.notice = msg
	s.severity = sev
	s.noticeAt = time.Now()
}

// content renders the viewport body and returns the line of the selected
// row, or -1.
func (s *screen) content(width int) (string, int) {
	if s.frame.DetailOpen && s.detail != nil {
		return s.renderDetail(width), -1
	}
	return s.renderTable()
}

func (s *screen) renderTable() (string, int) {
	f := s.frame
	var b strings.Builder
	if len(f.Rows) == 0 {
		if f.Refreshing {
			b.WriteString(dimStyle.Render("  Loading..."))
		} else {
			b.WriteString(dimStyle.Render("  (no tickers)"))
		}
		b.WriteString("\n")
		return b.String(), -1
	}

	widths := columnWidths(f)
	var head []string
	for i, h := range f.Headers {
		head = append(head, pad(h, widths[i], leftAligned(i)))
	}
	b.WriteString(colHeaderStyle.Render("  " + strings.Join(head, "  ")))
	b.WriteString("\n")

	for i, r := range f.Rows {
		hl := i == f.Selected
		wlMark := " "
		if r.Watched {
			wlMark = "*"
		}
		b.WriteString(hlStyle(dimStyle, hl).Render(" " + wlMark))
		for c, cell := range r.Cells {
			text := pad(cell.Text, widths[c], leftAligned(c))
			style := dirStyle(cell.Dir)
			if c == 2 { // symbol
				switch {
				case r.Watched && hl:
					style = symbolWlHlStyle
				case r.Watched:
					style = symbolWlStyle
				case hl:
					style = symbolHlStyle
				default:
					style = symbolStyle
				}
			}
			if c > 0 {
				b.WriteString(hlStyle(lipgloss.NewStyle(), hl).Render("  "))
			}
			b.WriteString(hlStyle(style, hl).Render(text))
		}
		if hl {
			// Pad remaining width with highlight background.
			b.WriteString(lipgloss.NewStyle().Background(highlightBG).Render(" "))
		}
		b.WriteString("\n")
	}
	// Line 0 is the column header.
	return b.String(), f.Selected + 1
}

func (s *screen) renderDetail(width int) string {
	var b strings.Builder
	b.WriteString(detailBarStyle.Width(width).Render("  " + s.detailSymbol + "  (esc back, x raw)"))
	b.WriteString("\n\n")
	lw := 0
	for _, f := range s.detail {
		lw = max(lw, lipgloss.Width(f.Label))
	}
	for _, f := range s.detail {
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(pad(f.Label, lw, true)))
		b.WriteString("  ")
		b.WriteString(dirStyle(f.Dir).Render(f.Value))
		b.WriteString("\n")
	}
	return b.String()
}

// columnWidths sizes each column to its widest header or cell.
func columnWidths(f dashboard.Frame) []int {
	w := make([]int, len(f.Headers))
	for i, h := range f.Headers {
		w[i] = lipgloss.Width(h)
	}
	for _, r := range f.Rows {
		for i, c := range r.Cells {
			if i < len(w) {
				w[i] = max(w[i], lipgloss.Width(c.Text))
			}
		}
	}
	return w
}

// leftAligned reports whether column i holds text rather than numbers.
func leftAligned(i int) bool { return i == 1 || i == 2 }

func pad(s string, width int, left bool) string {
	n := width - lipgloss.Width(s)
	if n <= 0 {
		return s
	}
	if left {
		return s + strings.Repeat(" ", n)
	}
	return strings.Repeat(" ", n) + s
}

// padOrTrunc pads s with spaces to width, or truncates if longer.
func padOrTrunc(s string, width int) string {
	n := len(s)
	if n >= width {
		return s[:max(width, 0)]
	}
	return s + strings.Repeat(" ", width-n)
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}
	f := m.scr.frame

	status := "idle"
	if f.Refreshing {
		status = "refreshing..."
	}
	updated := "--:--:--"
	if !f.RefreshedAt.IsZero() {
		updated = f.RefreshedAt.Local().Format("15:04:05")
	}
	headerText := fmt.Sprintf(
		" coinmon  %s    tickers: %s    sort: %s    updated: %s    %s ",
		m.quote,
		dashboard.FormatInt(len(f.Rows)),
		dashboard.SortModeLabel(f.Sort),
		updated,
		status,
	)
	headerBar := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("4")).
		Render(padOrTrunc(headerText, m.width))

	var footerBar string
	switch {
	case m.searching:
		footerBar = m.search.View()
	case m.scr.notice != "" && time.Since(m.scr.noticeAt) < noticeTTL:
		style := noticeStyle
		if m.scr.severity == dashboard.SeverityError {
			style = errorStyle
		}
		footerBar = style.Render(padOrTrunc(" "+m.scr.notice, m.width))
	case f.LastError != "":
		footerBar = errorStyle.Render(padOrTrunc(" last refresh failed: "+f.LastError, m.width))
	default:
		pct := m.viewport.ScrollPercent() * 100
		footerLeft := " q quit  r refresh  s sort  up/dn select  pgup/dn page  enter detail  / search  space watch"
		footerRight := fmt.Sprintf("%.0f%% ", pct)
		gap := m.width - len(footerLeft) - len(footerRight)
		if gap < 0 {
			gap = 0
		}
		footerBar = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("8")).
			Render(padOrTrunc(footerLeft+strings.Repeat(" ", gap)+footerRight, m.width))
	}

	return headerBar + "\n" + m.viewport.View() + "\n" + footerBar
}
