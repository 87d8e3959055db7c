package ui

import (
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"quote_dash/internal/domain"
)

// Dashboard runs the model on a bubbletea program. The alternate screen and raw
// mode are held only for the duration of Run and released on every exit path.
type Dashboard struct {
	program *tea.Program
}

// NewDashboard creates the program. Extra options are appended after the alternate screen.
func NewDashboard(m Model, opts ...tea.ProgramOption) *Dashboard {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return &Dashboard{program: tea.NewProgram(m, opts...)}
}

// Run blocks until the dashboard stops. It returns ErrUserInterrupt after the quit key,
// the error passed to NotifyUpstream, or a TerminalIOError when the terminal failed.
func (d *Dashboard) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.TerminalIOError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	final, err := d.program.Run()
	if errors.Is(err, tea.ErrInterrupted) {
		// SIGINT from outside the terminal; keyboard ctrl+c arrives as a key and is ignored.
		return domain.ErrUserInterrupt
	}
	if err != nil {
		return &domain.TerminalIOError{Err: err}
	}

	m, ok := final.(Model)
	if !ok {
		return &domain.TerminalIOError{Err: fmt.Errorf("unexpected model %T", final)}
	}
	return m.Outcome()
}

// NotifyUpstream stops the dashboard because the feed failed.
// Safe to call from any goroutine, and a no-op once the program has exited.
func (d *Dashboard) NotifyUpstream(err error) {
	slog.Debug("Dashboard notified of upstream failure", slog.Any("error", err))
	d.program.Send(UpstreamMsg{Err: err})
}
