// Package matching reconstructs closed trades from a session's raw entry and
// exit legs using FIFO lot matching, and reconciles computed trade PnL
// against the session's recorded daily net. It is a pure transform: no I/O,
// no shared state, safe to call concurrently.
package matching

import (
	"time"

	"trading-journal/internal/journal"
)

// MatchedTrade is a closing event pairing consumed entry quantity against an
// exit leg. A single exit leg may close against multiple entry lots,
// producing one MatchedTrade per partial close.
type MatchedTrade struct {
	SessionID      string                 `json:"session_id"`
	Date           time.Time              `json:"date"`
	Symbol         string                 `json:"symbol"`
	Kind           journal.InstrumentKind `json:"kind"`
	Side           journal.Side           `json:"side"`
	Orientation    journal.Orientation    `json:"orientation,omitempty"`
	EntryTime      string                 `json:"entry_time,omitempty"`
	ExitTime       string                 `json:"exit_time,omitempty"`
	HoldingMinutes *int                   `json:"holding_minutes,omitempty"` // nil if either time is missing or out of order
	Quantity       float64                `json:"quantity"`                  // closed quantity
	EntryPrice     float64                `json:"entry_price"`
	ExitPrice      float64                `json:"exit_price"`
	PnL            float64                `json:"pnl"`
}

// Diagnostics counts the legs the matcher dropped or could not resolve.
// Dropping is intentional graceful degradation, but callers may want to
// surface "many legs were skipped" without failing the request.
type Diagnostics struct {
	SkippedLegs       int `json:"skipped_legs"`       // zero/negative price or quantity, empty symbol
	UnmatchedExits    int `json:"unmatched_exits"`    // exits with no open inventory for their key
	OpenLots          int `json:"open_lots"`          // entry lots left unconsumed at end of day
	RescaledSessions  int `json:"rescaled_sessions"`  // sessions reconciled by proportional rescale
	RedistributedDays int `json:"redistributed_days"` // sessions reconciled by quantity-share distribution
}

// lot is open inventory awaiting an exit. One FIFO queue of lots exists per
// (normalized symbol, kind, side, orientation) key within a session.
type lot struct {
	remaining float64
	price     float64
	rawTime   string
	timeMin   int
	timeOK    bool
}

// lotKey identifies one inventory queue. Comparable, so it can key a map
// directly instead of a concatenated string.
type lotKey struct {
	symbol      string
	kind        journal.InstrumentKind
	side        journal.Side
	orientation journal.Orientation
}

func keyFor(l journal.Leg) lotKey {
	orientation := l.Orientation
	if l.Kind != journal.KindOption {
		orientation = ""
	}
	return lotKey{
		symbol:      l.NormalizedSymbol(),
		kind:        l.Kind,
		side:        l.Side,
		orientation: orientation,
	}
}
