package domain

// PlaceholderSymbol labels slots that have never received a tick.
const PlaceholderSymbol = "-"

// Tick is one Level 1 snapshot for a single instrument.
// It is a value type: the feed creates it once and the history ring owns the copy.
type Tick struct {
	TimestampMS    int64   `json:"timestamp_ms"` // Ingest time (ms since epoch)
	SymbolID       int64   `json:"tkr_id"`
	Symbol         string  `json:"tkr"`
	BestBid        float64 `json:"best_bid"`
	BestAsk        float64 `json:"best_ask"`
	LastTradePrice float64 `json:"last_trade_price"`
	LastTradeQty   float64 `json:"last_trade_qty"`
	LastTradeTime  int64   `json:"last_trade_time"` // Exchange trade time (ms since epoch)
}

// EmptyTick returns the record used to pre-fill history slots.
func EmptyTick() Tick {
	return Tick{Symbol: PlaceholderSymbol}
}

// IsEmpty reports whether t is the placeholder record.
func (t Tick) IsEmpty() bool {
	return t == EmptyTick()
}

// Envelope is the tagged frame published by the quote server.
type Envelope struct {
	Action string `json:"action"`
	Data   *Tick  `json:"data"`
}

// ActionLevel1 is the only action carrying quote data.
const ActionLevel1 = "lvl1"
