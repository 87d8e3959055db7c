package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"quote_dash/internal/domain"
	"quote_dash/internal/history"
	"quote_dash/internal/infra"
)

const (
	title      = "Trading Dashboard"
	footer     = "Press q to quit..."
	cellWidth  = 12
	labelWidth = 12
	noValue    = "-"

	clockLayout    = "15:04:05"
	datetimeLayout = "2006-01-02 15:04:05.000 -07:00"
)

var columns = []string{"TKR", "Price", "Quantity", "Time", "Bid", "Ask"}

// Styles.
var (
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder())
	panelTitle     = lipgloss.NewStyle().Bold(true)
	tableHeader    = lipgloss.NewStyle().Background(colorHeaderBG).Foreground(colorHeaderFG)
	labelStyle     = lipgloss.NewStyle().Width(labelWidth)
	connectedStyle = lipgloss.NewStyle().Foreground(colorUp)
	lostStyle      = lipgloss.NewStyle().Foreground(colorDown)
)

// Layout is the terminal area available to one frame.
type Layout struct {
	Width    int
	Height   int
	Location *time.Location // Time zone for timestamps, local when nil
}

// Stats is the feed status shown in the summary panel.
type Stats struct {
	Endpoint string
	Metrics  infra.MetricsSnapshot
}

// Render draws one full frame: title line, summary and quote panels side by side, footer line.
// It only reads the ring.
func Render(ring *history.Ring, layout Layout, stats Stats) string {
	width := max(layout.Width, 2*(cellWidth+2))
	height := max(layout.Height, 6)
	loc := layout.Location
	if loc == nil {
		loc = time.Local
	}

	// Title and footer take one line each; borders take two lines and two columns per panel.
	mainHeight := height - 2
	leftWidth := width / 2
	rightWidth := width - leftWidth
	innerHeight := mainHeight - 2

	left := panel("Summary", summaryLines(ring.Current(), stats, loc), leftWidth-2, innerHeight)
	right := panel("Level 1 Quotes", quoteLines(ring, loc), rightWidth-2, innerHeight)

	return lipgloss.JoinVertical(lipgloss.Left,
		clip(title, width),
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		clip(footer, width),
	)
}

// panel draws a bordered block whose content is clipped to width x height by a viewport.
func panel(name string, lines []string, width, height int) string {
	body := make([]string, 0, len(lines)+1)
	body = append(body, clip(panelTitle.Render(name), width))
	for _, l := range lines {
		body = append(body, clip(l, width))
	}

	vp := viewport.New(width, height)
	vp.SetContent(strings.Join(body, "\n"))
	return panelStyle.Render(vp.View())
}

// clip keeps s on one line of at most width cells.
func clip(s string, width int) string {
	return lipgloss.NewStyle().Inline(true).MaxWidth(width).Render(s)
}

func summaryLines(t domain.Tick, stats Stats, loc *time.Location) []string {
	row := func(label, value string) string {
		return labelStyle.Render(label) + value
	}

	status := lostStyle.Render("disconnected")
	if stats.Metrics.Connected() {
		status = connectedStyle.Render("connected")
	}

	m := stats.Metrics
	return []string{
		row("TKR:", t.Symbol),
		row("Price:", formatPrice(t.LastTradePrice)),
		row("Quantity:", decimal.NewFromFloat(t.LastTradeQty).String()),
		row("Last Trade:", formatDateTime(t.LastTradeTime, loc)),
		"",
		row("Bid:", formatPrice(t.BestBid)),
		row("Ask:", formatPrice(t.BestAsk)),
		row("Spread:", spread(t)),
		row("Mid:", mid(t)),
		"",
		row("Feed:", status),
		row("Endpoint:", stats.Endpoint),
		row("Ticks:", fmt.Sprintf("%d recv / %d shown", m.TicksReceived, m.TicksRendered)),
		row("Skipped:", fmt.Sprintf("%d", m.FramesSkipped)),
		row("Reconnects:", fmt.Sprintf("%d", m.Reconnects)),
	}
}

// quoteLines renders the header and one row per ordered pair, newest first.
func quoteLines(ring *history.Ring, loc *time.Location) []string {
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = tableHeader.Width(cellWidth).Render(c)
	}

	lines := make([]string, 0, ring.Cap())
	lines = append(lines, strings.Join(header, ""))
	for cur, prior := range ring.OrderedView() {
		lines = append(lines, quoteRow(cur, Colorize(history.Diff(cur, prior)), loc))
	}
	return lines
}

func quoteRow(t domain.Tick, c RowColors, loc *time.Location) string {
	base := lipgloss.NewStyle().Width(cellWidth).Background(c.RowBG).Foreground(c.RowFG)

	cells := []string{
		base.Render(t.Symbol),
		base.Render(formatPrice(t.LastTradePrice)),
		base.Render(formatQty(t.LastTradeQty)),
		base.Render(formatClock(t.TimestampMS, loc)),
		base.Foreground(c.BidFG).Render(formatPrice(t.BestBid)),
		base.Foreground(c.AskFG).Render(formatPrice(t.BestAsk)),
	}
	return strings.Join(cells, "")
}

func formatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func formatQty(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}

// formatClock renders the ingest time of a row. Zero means the slot was never filled.
func formatClock(ms int64, loc *time.Location) string {
	if ms == 0 {
		return noValue
	}
	return time.UnixMilli(ms).In(loc).Format(clockLayout)
}

func formatDateTime(ms int64, loc *time.Location) string {
	if ms == 0 {
		return noValue
	}
	return time.UnixMilli(ms).In(loc).Format(datetimeLayout)
}

func spread(t domain.Tick) string {
	if t.IsEmpty() {
		return noValue
	}
	return decimal.NewFromFloat(t.BestAsk).Sub(decimal.NewFromFloat(t.BestBid)).StringFixed(2)
}

func mid(t domain.Tick) string {
	if t.IsEmpty() {
		return noValue
	}
	sum := decimal.NewFromFloat(t.BestAsk).Add(decimal.NewFromFloat(t.BestBid))
	return sum.Div(decimal.NewFromInt(2)).StringFixed(2)
}
