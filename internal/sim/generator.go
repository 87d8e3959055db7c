package sim

import (
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"quote_dash/internal/domain"
)

// Generator produces a random walk of Level 1 quotes on a fixed tick grid.
// The same seed always yields the same sequence of prices.
type Generator struct {
	rng      *rand.Rand
	symbol   string
	symbolID int64
	tickSize decimal.Decimal
	price    decimal.Decimal
	lastTime int64
}

// NewGenerator creates a generator starting at startPrice, snapped to tickSize.
func NewGenerator(symbol string, symbolID int64, startPrice, tickSize float64, seed uint64) *Generator {
	tick := decimal.NewFromFloat(tickSize)
	return &Generator{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		symbol:   symbol,
		symbolID: symbolID,
		tickSize: tick,
		price:    snap(decimal.NewFromFloat(startPrice), tick),
	}
}

func snap(v, tick decimal.Decimal) decimal.Decimal {
	return v.Div(tick).Round(0).Mul(tick)
}

// Next returns the quote for time now.
// About half of the steps print a trade; the others only move the book.
func (g *Generator) Next(now time.Time) domain.Tick {
	traded := g.rng.IntN(2) == 0
	if traded {
		steps := int64(g.rng.IntN(5) - 2) // -2..2 ticks
		next := g.price.Add(g.tickSize.Mul(decimal.NewFromInt(steps)))
		if next.GreaterThan(g.tickSize) {
			g.price = next
		}
		g.lastTime = now.UnixMilli()
	}

	halfSpread := g.tickSize.Mul(decimal.NewFromInt(int64(1 + g.rng.IntN(3))))
	bid := g.price.Sub(halfSpread)
	ask := g.price.Add(halfSpread)
	qty := decimal.NewFromFloat(g.rng.Float64() * 0.5).Round(4)
	if qty.IsZero() {
		qty = decimal.New(1, -4)
	}

	return domain.Tick{
		TimestampMS:    now.UnixMilli(),
		SymbolID:       g.symbolID,
		Symbol:         g.symbol,
		BestBid:        bid.InexactFloat64(),
		BestAsk:        ask.InexactFloat64(),
		LastTradePrice: g.price.InexactFloat64(),
		LastTradeQty:   qty.InexactFloat64(),
		LastTradeTime:  g.lastTime,
	}
}
