package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"coinmon/internal/engine"
	"coinmon/internal/util"
)

func main() {
	flags := engine.BindFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "coinmon: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logPath := cfg.Logging.File
	if logPath == "" {
		logPath = filepath.Join(os.TempDir(), fmt.Sprintf("coinmon-%s.log", time.Now().Format("2006-01-02")))
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, logFile)

	scr := newScreen()
	eng, err := engine.New(cfg, scr, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coinmon: %v\n", err)
		os.Exit(1)
	}
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(
		initialModel(ctx, cancel, eng.Controller, scr, cfg.Dashboard.Currency, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if eng.Trigger != nil {
		go func() {
			err := eng.Trigger.Run(ctx, func(sym string) { p.Send(pushMsg{symbol: sym}) })
			if err != nil {
				logger.Error("stream trigger stopped", "error", err)
			}
		}()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
