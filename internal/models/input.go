package models

// Input is the scorer's input, resolved once at the boundary: either
// trade-level rows that still need a rollup, or rows already aggregated per
// ticker.
type Input interface {
	Len() int
	isInput()
}

// RawTrades is trade-level input.
type RawTrades []TradeRecord

// Aggregated is per-ticker input that bypasses the rollup.
type Aggregated []TickerFeatureRow

func (r RawTrades) Len() int  { return len(r) }
func (a Aggregated) Len() int { return len(a) }

func (RawTrades) isInput()  {}
func (Aggregated) isInput() {}

// Mode names the input kind for logs and API responses.
func Mode(in Input) string {
	switch in.(type) {
	case RawTrades:
		return "raw"
	case Aggregated:
		return "aggregated"
	default:
		return "unknown"
	}
}
