package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/sync/errgroup"

	"coinmon/internal/dashboard"
	"coinmon/internal/engine"
	"coinmon/internal/util"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	selStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

func main() {
	flags := engine.BindFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "coinmon-console: %v\n", err)
		os.Exit(1)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	once := cfg.Dashboard.RefreshSeconds == 0
	out := &printer{w: os.Stdout, clear: !once}
	eng, err := engine.New(cfg, out, logger)
	if err != nil {
		logger.Error("starting", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var inputs chan dashboard.Input
	if !once {
		inputs = make(chan dashboard.Input)
		go readCommands(ctx, os.Stdin, inputs)
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	var triggers chan string
	if eng.Trigger != nil {
		triggers = make(chan string, 1)
		g.Go(func() error {
			err := eng.Trigger.Run(runCtx, func(sym string) {
				select {
				case triggers <- sym:
				default:
				}
			})
			if err != nil {
				logger.Error("stream trigger stopped", "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer stop()
		return dashboard.Run(runCtx, eng.Controller, inputs, triggers)
	})

	if err := g.Wait(); err != nil {
		logger.Error("dashboard", "error", err)
		os.Exit(1)
	}
	if once && eng.Controller.State().LastError != nil {
		os.Exit(1)
	}
}

// readCommands turns stdin lines into dashboard inputs:
//
//	r         refresh          s        cycle sort
//	j / k     down / up        n / p    page down / up
//	o [i]     open detail      c        close detail
//	x         raw toggle       w        toggle watch
//	/query    search           q        quit
func readCommands(ctx context.Context, r io.Reader, inputs chan<- dashboard.Input) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		in, ok := parseCommand(sc.Text())
		if !ok {
			continue
		}
		select {
		case inputs <- in:
		case <-ctx.Done():
			return
		}
		if in.Kind == dashboard.InputQuit {
			return
		}
	}
}

func parseCommand(line string) (dashboard.Input, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return dashboard.Input{}, false
	}
	if strings.HasPrefix(line, "/") {
		return dashboard.Input{Kind: dashboard.InputSearch, Query: line[1:]}, true
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "r":
		return dashboard.Input{Kind: dashboard.InputRefresh}, true
	case "s":
		return dashboard.Input{Kind: dashboard.InputSort}, true
	case "j":
		return dashboard.Input{Kind: dashboard.InputDown}, true
	case "k":
		return dashboard.Input{Kind: dashboard.InputUp}, true
	case "n":
		return dashboard.Input{Kind: dashboard.InputPageDown}, true
	case "p":
		return dashboard.Input{Kind: dashboard.InputPageUp}, true
	case "o":
		idx := -1
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return dashboard.Input{}, false
			}
			idx = n - 1 // rows are shown 1-based
		}
		return dashboard.Input{Kind: dashboard.InputActivate, Index: idx}, true
	case "c":
		return dashboard.Input{Kind: dashboard.InputDismiss}, true
	case "x":
		return dashboard.Input{Kind: dashboard.InputRaw}, true
	case "w":
		return dashboard.Input{Kind: dashboard.InputWatch}, true
	case "q":
		return dashboard.Input{Kind: dashboard.InputQuit}, true
	}
	return dashboard.Input{}, false
}

// printer writes each frame to w as a table.
type printer struct {
	w     io.Writer
	clear bool
}

// Compile-time interface check.
var _ dashboard.Renderer = (*printer)(nil)

func (p *printer) Render(f dashboard.Frame) {
	if f.DetailOpen || (f.Refreshing && len(f.Rows) == 0) {
		return
	}
	if p.clear {
		fmt.Fprint(p.w, "\033[H\033[2J")
	}
	fmt.Fprintln(p.w, renderTable(f))
	updated := "never"
	if !f.RefreshedAt.IsZero() {
		updated = f.RefreshedAt.Local().Format("2006-01-02 15:04:05")
	}
	fmt.Fprintf(p.w, "%s tickers    sort: %s    updated: %s\n",
		dashboard.FormatInt(len(f.Rows)), dashboard.SortModeLabel(f.Sort), updated)
	if f.LastError != "" {
		fmt.Fprintln(p.w, errStyle.Render("last refresh failed: "+f.LastError))
	}
}

func (p *printer) RenderDetail(symbol string, fields []dashboard.Field) {
	if p.clear {
		fmt.Fprint(p.w, "\033[H\033[2J")
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(symbol, "").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			s := lipgloss.NewStyle().Padding(0, 1)
			if col == 1 && row < len(fields) {
				s = dirStyle(fields[row].Dir).Padding(0, 1)
			}
			return s
		})
	for _, f := range fields {
		t.Row(f.Label, f.Value)
	}
	fmt.Fprintln(p.w, t.Render())
}

func (p *printer) Notify(msg string, sev dashboard.Severity) {
	line := fmt.Sprintf("[%s] %s %s", time.Now().Format("15:04:05"), sev, msg)
	if sev == dashboard.SeverityError {
		line = errStyle.Render(line)
	}
	fmt.Fprintln(p.w, line)
}

func renderTable(f dashboard.Frame) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(f.Headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if row < 0 || row >= len(f.Rows) || col >= len(f.Rows[row].Cells) {
				return s
			}
			if col != 1 && col != 2 {
				s = s.Align(lipgloss.Right)
			}
			if row == f.Selected {
				return selStyle.Inherit(s)
			}
			return dirStyle(f.Rows[row].Cells[col].Dir).Inherit(s)
		})
	for _, r := range f.Rows {
		cells := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			cells[i] = c.Text
		}
		if r.Watched {
			cells[0] = "*" + cells[0]
		}
		t.Row(cells...)
	}
	return t.Render()
}

func dirStyle(d dashboard.Direction) lipgloss.Style {
	switch d {
	case dashboard.Positive:
		return gainStyle
	case dashboard.Negative:
		return lossStyle
	default:
		return lipgloss.NewStyle()
	}
}
