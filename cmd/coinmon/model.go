package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"coinmon/internal/dashboard"
)

// Messages.
type tickMsg struct{ epoch uint64 }
type resultMsg struct{ result dashboard.Result }
type pushMsg struct{ symbol string }
type startMsg struct{}

type keyMap struct {
	Quit     key.Binding
	Refresh  key.Binding
	Sort     key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Open     key.Binding
	Close    key.Binding
	Search   key.Binding
	Watch    key.Binding
	Raw      key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up/dn", "select")),
	Down:     key.NewBinding(key.WithKeys("down", "j")),
	PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup/dn", "page")),
	PageDown: key.NewBinding(key.WithKeys("pgdown")),
	Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "detail")),
	Close:    key.NewBinding(key.WithKeys("esc", "enter"), key.WithHelp("esc", "back")),
	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Watch:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "watch")),
	Raw:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "raw")),
}

// fetchCmd runs f off the event loop and delivers its result back to Update.
func fetchCmd(ctx context.Context, f *dashboard.Fetch) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		return resultMsg{result: f.Run(ctx)}
	}
}

// tickCmd arms the next refresh timer for the scheduler's current epoch.
func tickCmd(s *dashboard.Scheduler) tea.Cmd {
	if !s.Recurring() {
		return nil
	}
	epoch := s.Epoch()
	return tea.Tick(s.Interval(), func(time.Time) tea.Msg {
		return tickMsg{epoch: epoch}
	})
}

// Model.
type model struct {
	ctx    context.Context
	cancel context.CancelFunc
	ctrl   *dashboard.Controller
	scr    *screen
	logger *slog.Logger

	viewport      viewport.Model
	search        textinput.Model
	searching     bool
	ready         bool
	width, height int
	quote         string
}

func initialModel(ctx context.Context, cancel context.CancelFunc, ctrl *dashboard.Controller, scr *screen, quote string, logger *slog.Logger) model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "symbol or name"
	ti.CharLimit = 32
	return model{
		ctx:    ctx,
		cancel: cancel,
		ctrl:   ctrl,
		scr:    scr,
		logger: logger,
		search: ti,
		quote:  quote,
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg { return startMsg{} }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case startMsg:
		f, err := m.ctrl.Start(m.ctx)
		if err != nil {
			m.logger.Error("starting dashboard", "error", err)
			return m, tea.Quit
		}
		m.refresh()
		return m, tea.Batch(fetchCmd(m.ctx, f), tickCmd(m.ctrl.Scheduler()))

	case tickMsg:
		sched := m.ctrl.Scheduler()
		if msg.epoch != sched.Epoch() {
			return m, nil // armed before a stop
		}
		f := m.ctrl.Tick(msg.epoch)
		m.refresh()
		return m, tea.Batch(fetchCmd(m.ctx, f), tickCmd(sched))

	case resultMsg:
		next := m.ctrl.Apply(msg.result)
		m.refresh()
		return m, fetchCmd(m.ctx, next)

	case pushMsg:
		f := m.ctrl.Trigger(msg.symbol)
		m.refresh()
		return m, fetchCmd(m.ctx, f)

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - 2 // header + footer
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.search.Width = m.width - 4
		m.refresh()
		return m, nil
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	detail := m.scr.frame.DetailOpen

	switch {
	case key.Matches(msg, keys.Quit):
		m.ctrl.Quit()
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, keys.Refresh):
		f := m.ctrl.ManualRefresh()
		m.refresh()
		return m, fetchCmd(m.ctx, f)
	case detail && key.Matches(msg, keys.Close):
		m.ctrl.DismissDetail()
	case detail && key.Matches(msg, keys.Raw):
		m.ctrl.ToggleRaw()
	case detail:
		// Everything else scrolls the detail view.
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case key.Matches(msg, keys.Open):
		m.ctrl.ActivateSelected()
		m.refresh()
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, keys.Sort):
		m.ctrl.CycleSort()
	case key.Matches(msg, keys.Up):
		m.ctrl.MoveUp()
	case key.Matches(msg, keys.Down):
		m.ctrl.MoveDown()
	case key.Matches(msg, keys.PageUp):
		m.ctrl.PageUp()
	case key.Matches(msg, keys.PageDown):
		m.ctrl.PageDown()
	case key.Matches(msg, keys.Watch):
		m.ctrl.ToggleWatch(m.ctx)
	case key.Matches(msg, keys.Raw):
		m.ctrl.ToggleRaw()
	case key.Matches(msg, keys.Search):
		m.searching = true
		m.search.SetValue("")
		return m, m.search.Focus()
	}
	m.refresh()
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		if err := m.ctrl.Search(m.search.Value()); err != nil {
			m.logger.Info("search miss", "error", err)
		}
		m.refresh()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// refresh redraws the viewport from the last render instruction and keeps
// the selected row on screen.
func (m *model) refresh() {
	if !m.ready {
		return
	}
	content, selLine := m.scr.content(m.width)
	m.viewport.SetContent(content)
	if selLine >= 0 {
		m.ensureVisible(selLine)
	}
}

// ensureVisible scrolls the viewport so the given line is visible.
func (m *model) ensureVisible(line int) {
	yOff := m.viewport.YOffset
	vpH := m.viewport.Height
	if line < yOff {
		m.viewport.SetYOffset(line)
	} else if line >= yOff+vpH {
		m.viewport.SetYOffset(line - vpH + 1)
	}
}
