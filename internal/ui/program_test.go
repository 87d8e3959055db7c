package ui

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"quote_dash/internal/domain"
)

func TestDashboard_QuitKey(t *testing.T) {
	m, _, _ := newTestModel(t, 1)
	d := NewDashboard(m, tea.WithInput(strings.NewReader("q")), tea.WithOutput(io.Discard))

	done := make(chan error, 1)
	go func() { done <- d.Run() }()

	select {
	case err := <-done:
		if !domain.IsUserInterrupt(err) {
			t.Errorf("Expected user interrupt, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Dashboard did not stop on q")
	}
}

func TestDashboard_NotifyUpstream(t *testing.T) {
	m, _, _ := newTestModel(t, 1)
	d := NewDashboard(m, tea.WithInput(nil), tea.WithOutput(io.Discard))

	done := make(chan error, 1)
	go func() { done <- d.Run() }()

	boom := errors.New("feed lost")
	d.NotifyUpstream(boom)

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("Expected upstream error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Dashboard did not stop on upstream error")
	}

	// No-op after exit.
	d.NotifyUpstream(boom)
}
