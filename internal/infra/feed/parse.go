package feed

import (
	"encoding/json"
	"fmt"

	"quote_dash/internal/domain"
)

// tickFields are the keys every quote object must carry. A missing key would
// otherwise decode as zero and show up as a price move.
var tickFields = []string{
	"timestamp_ms",
	"tkr_id",
	"tkr",
	"best_bid",
	"best_ask",
	"last_trade_price",
	"last_trade_qty",
	"last_trade_time",
}

type rawEnvelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// ParseEnvelope decodes one frame of the quote stream.
// Frames tagged with a different action are well-formed but carry no quote: skip is true and err is nil.
// This is looser than a strict envelope reading, which would reject any action but lvl1.
// A lvl1 frame whose data lacks any tick field is a ProtocolError.
func ParseEnvelope(raw []byte, action string) (tick domain.Tick, skip bool, err error) {
	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Tick{}, false, domain.NewProtocolError(raw, fmt.Errorf("decode envelope: %w", err))
	}

	if env.Action != action {
		return domain.Tick{}, true, nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return domain.Tick{}, false, domain.NewProtocolError(raw, domain.ErrMissingData)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &fields); err != nil {
		return domain.Tick{}, false, domain.NewProtocolError(raw, fmt.Errorf("decode data: %w", err))
	}
	for _, name := range tickFields {
		if v, ok := fields[name]; !ok || string(v) == "null" {
			return domain.Tick{}, false, domain.NewProtocolError(raw, fmt.Errorf("%w: %s", domain.ErrMissingField, name))
		}
	}

	if err := json.Unmarshal(env.Data, &tick); err != nil {
		return domain.Tick{}, false, domain.NewProtocolError(raw, fmt.Errorf("decode data: %w", err))
	}
	return tick, false, nil
}
