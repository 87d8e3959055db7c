package ui

import (
	"github.com/charmbracelet/lipgloss"

	"quote_dash/internal/history"
)

// Colors.
var (
	colorUp       = lipgloss.Color("#A6E3A1") // favorable
	colorDown     = lipgloss.Color("#F38BA8") // unfavorable
	colorOverride = lipgloss.Color("#18181B") // text on a tinted row
	colorHeaderBG = lipgloss.Color("#CDD6F4")
	colorHeaderFG = lipgloss.Color("#11111B")
	colorNone     = lipgloss.NoColor{}
)

// RowColors is the color assignment for one quote table row.
// colorNone means the terminal default.
type RowColors struct {
	BidFG lipgloss.TerminalColor
	AskFG lipgloss.TerminalColor
	RowBG lipgloss.TerminalColor
	RowFG lipgloss.TerminalColor
}

// Colorize maps a delta to row colors. A moved trade price tints the whole row and
// forces every foreground to the override color; otherwise bid and ask are tinted on their own.
func Colorize(d history.Delta) RowColors {
	switch d.Trade {
	case history.Up:
		return RowColors{BidFG: colorOverride, AskFG: colorOverride, RowBG: colorUp, RowFG: colorOverride}
	case history.Down:
		return RowColors{BidFG: colorOverride, AskFG: colorOverride, RowBG: colorDown, RowFG: colorOverride}
	}
	return RowColors{
		BidFG: tint(d.Bid),
		AskFG: tint(d.Ask),
		RowBG: colorNone,
		RowFG: colorNone,
	}
}

func tint(d history.Direction) lipgloss.TerminalColor {
	switch d {
	case history.Up:
		return colorUp
	case history.Down:
		return colorDown
	default:
		return colorNone
	}
}
