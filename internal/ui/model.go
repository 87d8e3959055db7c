package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"quote_dash/internal/domain"
	"quote_dash/internal/engine"
	"quote_dash/internal/history"
	"quote_dash/internal/infra"
)

// QuitKey stops the dashboard.
const QuitKey = "q"

// UpstreamMsg tells the dashboard that the feed has failed.
type UpstreamMsg struct {
	Err error
}

type pollMsg time.Time

func pollCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

// Model is the render/input state machine. It owns the history ring;
// nothing outside the program goroutine touches it.
type Model struct {
	ring     *history.Ring
	inbox    *engine.Inbox
	metrics  *infra.Metrics
	endpoint string
	poll     time.Duration
	loc      *time.Location

	width, height int
	ready         bool
	stopped       bool
	outcome       error
}

// NewModel creates the dashboard model reading from inbox.
func NewModel(cfg *infra.Config, inbox *engine.Inbox, metrics *infra.Metrics) Model {
	return Model{
		ring:     history.NewRing(cfg.UI.HistorySize),
		inbox:    inbox,
		metrics:  metrics,
		endpoint: cfg.Feed.URL,
		poll:     cfg.PollInterval(),
		loc:      time.Local,
	}
}

// Init starts the poll loop.
func (m Model) Init() tea.Cmd {
	return pollCmd(m.poll)
}

// Update handles keys, window size, inbox polls and upstream failures.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == QuitKey {
			return m.stop(domain.ErrUserInterrupt)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case pollMsg:
		if m.stopped {
			return m, nil
		}
		// At most one tick per poll keeps key handling within one poll interval.
		if t, ok := m.inbox.TryRecv(); ok {
			m.ring.Insert(t)
			m.metrics.RecordRendered()
		}
		return m, pollCmd(m.poll)

	case UpstreamMsg:
		return m.stop(msg.Err)
	}

	return m, nil
}

func (m Model) stop(outcome error) (tea.Model, tea.Cmd) {
	if !m.stopped {
		m.stopped = true
		m.outcome = outcome
	}
	return m, tea.Quit
}

// View draws the current frame.
func (m Model) View() string {
	if !m.ready {
		return "Connecting..."
	}
	return Render(m.ring, Layout{Width: m.width, Height: m.height, Location: m.loc}, Stats{
		Endpoint: m.endpoint,
		Metrics:  m.metrics.Snapshot(),
	})
}

// Outcome returns why the dashboard stopped: ErrUserInterrupt after the quit key,
// the upstream error otherwise, nil while running.
func (m Model) Outcome() error {
	return m.outcome
}

// Stopped reports whether the model reached its terminal state.
func (m Model) Stopped() bool {
	return m.stopped
}

// Ring exposes the history for inspection.
func (m Model) Ring() *history.Ring {
	return m.ring
}
