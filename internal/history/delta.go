package history

import "quote_dash/internal/domain"

// Direction is the change of one field against the immediately preceding tick.
type Direction int8

const (
	Unchanged Direction = iota
	Up
	Down
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return "UNCHANGED"
	}
}

// Compare classifies cur against prior with exact float comparison.
func Compare(cur, prior float64) Direction {
	switch {
	case cur > prior:
		return Up
	case cur < prior:
		return Down
	default:
		return Unchanged
	}
}

// Delta holds the three independent comparisons used for coloring a row.
type Delta struct {
	Bid   Direction
	Ask   Direction
	Trade Direction
}

// Diff compares cur against the tick inserted right before it.
func Diff(cur, prior domain.Tick) Delta {
	return Delta{
		Bid:   Compare(cur.BestBid, prior.BestBid),
		Ask:   Compare(cur.BestAsk, prior.BestAsk),
		Trade: Compare(cur.LastTradePrice, prior.LastTradePrice),
	}
}

// TradeMoved reports whether the last trade price changed, which overrides bid/ask tints.
func (d Delta) TradeMoved() bool {
	return d.Trade != Unchanged
}
