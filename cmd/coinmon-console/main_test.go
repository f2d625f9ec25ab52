package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"coinmon/internal/dashboard"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want dashboard.Input
		ok   bool
	}{
		{"r", dashboard.Input{Kind: dashboard.InputRefresh}, true},
		{" s ", dashboard.Input{Kind: dashboard.InputSort}, true},
		{"/eth", dashboard.Input{Kind: dashboard.InputSearch, Query: "eth"}, true},
		{"o", dashboard.Input{Kind: dashboard.InputActivate, Index: -1}, true},
		{"o 3", dashboard.Input{Kind: dashboard.InputActivate, Index: 2}, true},
		{"o x", dashboard.Input{}, false},
		{"n", dashboard.Input{Kind: dashboard.InputPageDown}, true},
		{"q", dashboard.Input{Kind: dashboard.InputQuit}, true},
		{"", dashboard.Input{}, false},
		{"zzz", dashboard.Input{}, false},
	}
	for _, tt := range tests {
		got, ok := parseCommand(tt.line)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseCommand(%q) = %+v, %v; want %+v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestReadCommandsStopsAtQuit(t *testing.T) {
	inputs := make(chan dashboard.Input, 10)
	readCommands(context.Background(), strings.NewReader("r\nbogus\nq\ns\n"), inputs)
	close(inputs)

	var kinds []dashboard.InputKind
	for in := range inputs {
		kinds = append(kinds, in.Kind)
	}
	if len(kinds) != 2 || kinds[0] != dashboard.InputRefresh || kinds[1] != dashboard.InputQuit {
		t.Errorf("inputs = %v, want [refresh quit]", kinds)
	}
}

func TestPrinterRender(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}
	cells := make([]dashboard.Cell, 11)
	for i := range cells {
		cells[i] = dashboard.Cell{Text: "-"}
	}
	cells[2].Text = "BTC"
	cells[7].Text = "1000.00 billion"
	p.Render(dashboard.Frame{
		Headers:  dashboard.Headers("USD"),
		Rows:     []dashboard.TableRow{{Symbol: "BTC", Watched: true, Cells: cells}},
		Selected: 0,
	})

	out := buf.String()
	for _, want := range []string{"Market Cap (USD)", "1000.00 billion", "BTC", "1 tickers"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	p.Render(dashboard.Frame{DetailOpen: true})
	if buf.Len() != 0 {
		t.Error("frames under an open detail view should not print")
	}
}
