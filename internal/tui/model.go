// Package tui implements the live timer view shown by tock watch.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tockapp/tock/internal/apiclient"
	"github.com/tockapp/tock/internal/features"
	"github.com/tockapp/tock/internal/timer"
	"github.com/tockapp/tock/internal/version"
)

// Entries is the part of the API client the view needs.
type Entries interface {
	CurrentActive(ctx context.Context) (*apiclient.TimeEntry, error)
	StopTimeEntry(ctx context.Context, id int) (*apiclient.TimeEntry, error)
}

// Model is the Bubble Tea model for the watch view
type Model struct {
	ctx     context.Context
	entries Entries
	cache   *features.Cache
	gate    *features.Gate
	now     func() time.Time

	// Window dimensions
	Width  int
	Height int

	// Data
	Entry        *apiclient.TimeEntry
	TimerEnabled bool
	Flags        features.State

	// UI state
	Fetching    bool
	LastRefresh time.Time
	Status      string
	Err         error
	UpdateAvail *version.UpdateAvailableMsg
	spinner     spinner.Model
	updateCheck tea.Cmd

	// Configuration
	RefreshInterval time.Duration
}

// MinWidth is the minimum terminal width for the boxed layout
const MinWidth = 40

// TickMsg advances the elapsed timer
type TickMsg time.Time

// RefreshDataMsg carries refreshed data
type RefreshDataMsg struct {
	Entry        *apiclient.TimeEntry
	TimerEnabled bool
	Flags        features.State
	Err          error
	Timestamp    time.Time
}

// StoppedMsg reports the result of stopping the running entry
type StoppedMsg struct {
	Entry *apiclient.TimeEntry
	Err   error
}

// NewModel creates a watch model. interval controls how often the active
// entry is re-fetched; the elapsed time ticks every second regardless.
func NewModel(ctx context.Context, entries Entries, cache *features.Cache, interval time.Duration) Model {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return Model{
		ctx:             ctx,
		entries:         entries,
		cache:           cache,
		gate:            features.NewGate(cache),
		now:             time.Now,
		Flags:           cache.State(),
		Fetching:        true,
		spinner:         s,
		RefreshInterval: interval,
	}
}

// WithUpdateCheck runs cmd once at startup; an UpdateAvailableMsg it
// returns is shown in the footer.
func (m Model) WithUpdateCheck(cmd tea.Cmd) Model {
	m.updateCheck = cmd
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchData(),
		m.scheduleTick(),
		m.spinner.Tick,
		m.updateCheck,
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case TickMsg:
		t := time.Time(msg)
		cmds := []tea.Cmd{m.scheduleTick()}
		if !m.Fetching && t.Sub(m.LastRefresh) >= m.RefreshInterval {
			m.Fetching = true
			cmds = append(cmds, m.fetchData())
		}
		m.Flags = m.cache.State()
		return m, tea.Batch(cmds...)

	case RefreshDataMsg:
		m.Fetching = false
		m.LastRefresh = msg.Timestamp
		m.Flags = msg.Flags
		m.TimerEnabled = msg.TimerEnabled
		m.Err = msg.Err
		if msg.Err == nil {
			m.Entry = msg.Entry
		}
		return m, nil

	case StoppedMsg:
		if msg.Err != nil {
			m.Err = msg.Err
			return m, nil
		}
		m.Entry = nil
		m.Status = "Stopped " + msg.Entry.Title
		return m, nil

	case version.UpdateAvailableMsg:
		m.UpdateAvail = &msg
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "r":
		if m.Fetching {
			return m, nil
		}
		m.Fetching = true
		m.Status = ""
		return m, m.reload()

	case "c":
		if m.Fetching {
			return m, nil
		}
		m.cache.Clear()
		m.Flags = m.cache.State()
		m.Fetching = true
		m.Status = "Feature cache cleared"
		return m, m.fetchData()

	case "s":
		if m.Entry == nil || !m.TimerEnabled {
			return m, nil
		}
		return m, m.stop(m.Entry.ID)
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// TimerState returns the timer state as of the model's clock.
func (m Model) TimerState() timer.State {
	return timer.FromEntry(m.Entry, m.now())
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// fetchData returns a command that fetches the active entry and the timer gate
func (m Model) fetchData() tea.Cmd {
	ctx, entries, cache, gate, now := m.ctx, m.entries, m.cache, m.gate, m.now
	return func() tea.Msg {
		msg := RefreshDataMsg{}
		msg.TimerEnabled = gate.TrayTimerEnabled(ctx)
		msg.Entry, msg.Err = entries.CurrentActive(ctx)
		msg.Flags = cache.State()
		msg.Timestamp = now()
		return msg
	}
}

// reload reloads all flags before fetching
func (m Model) reload() tea.Cmd {
	ctx, cache := m.ctx, m.cache
	fetch := m.fetchData()
	return func() tea.Msg {
		cache.LoadFeatures(ctx)
		return fetch()
	}
}

func (m Model) stop(id int) tea.Cmd {
	ctx, entries := m.ctx, m.entries
	return func() tea.Msg {
		e, err := entries.StopTimeEntry(ctx, id)
		return StoppedMsg{Entry: e, Err: err}
	}
}
