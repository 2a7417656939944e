// Package journal defines the trading journal domain model: legs, sessions,
// and the persisted session store. Legs and sessions are the raw inputs the
// analytics engine consumes; they are never mutated by it.
package journal

import (
	"strings"
	"time"
)

// InstrumentKind identifies the instrument class of a leg. It drives the
// contract multiplier and the PnL sign convention during matching.
type InstrumentKind string

const (
	KindOption InstrumentKind = "option"
	KindFuture InstrumentKind = "future"
	KindStock  InstrumentKind = "stock"
	KindCrypto InstrumentKind = "crypto"
	KindForex  InstrumentKind = "forex"
	KindOther  InstrumentKind = "other"
)

// ParseKind maps free-text instrument kinds onto the known set, defaulting
// to KindOther for anything unrecognized.
func ParseKind(s string) InstrumentKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "option", "options":
		return KindOption
	case "future", "futures":
		return KindFuture
	case "stock", "stocks", "equity", "equities", "share", "shares":
		return KindStock
	case "crypto", "cryptocurrency":
		return KindCrypto
	case "forex", "fx", "currency":
		return KindForex
	default:
		return KindOther
	}
}

// Side is the direction of a position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Orientation is the premium orientation of an option leg. Empty for
// non-option instruments.
type Orientation string

const (
	OrientationDebit  Orientation = "debit"
	OrientationCredit Orientation = "credit"
)

// LegTag marks a leg as opening or closing inventory.
type LegTag string

const (
	TagEntry LegTag = "entry"
	TagExit  LegTag = "exit"
)

// Leg is one side of a trade action on a given calendar day. Legs are
// immutable inputs to the matcher.
type Leg struct {
	ID          string         `json:"id"`
	Tag         LegTag         `json:"tag"`                    // entry or exit
	Symbol      string         `json:"symbol"`                 // free text, normalized uppercase for matching
	Kind        InstrumentKind `json:"kind"`                   // option, future, stock, crypto, forex, other
	Side        Side           `json:"side"`                   // long or short
	Orientation Orientation    `json:"orientation,omitempty"`  // credit/debit, options only
	Price       float64        `json:"price"`                  // unit price
	Quantity    float64        `json:"quantity"`               // must be > 0
	ClockTime   string         `json:"clock_time,omitempty"`   // "HH:MM[:SS]", optional AM/PM
	DTE         *int           `json:"dte,omitempty"`          // days to expiration, if known
}

// NormalizedSymbol returns the symbol in inventory-key form.
func (l Leg) NormalizedSymbol() string {
	return strings.ToUpper(strings.TrimSpace(l.Symbol))
}

// Session is one calendar day of trading activity. Sessions are the unit of
// aggregation for the edge engine; trades are the unit for reconciliation.
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Date          time.Time `json:"date"`                      // calendar day, midnight UTC
	RecordedNet   float64   `json:"recorded_net"`              // the net PnL the journal already shows
	PlanRespected *bool     `json:"plan_respected,omitempty"`  // nil when the trader didn't grade the day
	Tags          []string  `json:"tags,omitempty"`            // free text, e.g. "FOMO", "revenge trade"
	EmotionTags   []string  `json:"emotion_tags,omitempty"`
	Entries       []Leg     `json:"entries"`
	Exits         []Leg     `json:"exits"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasTag reports whether any session or emotion tag contains the given
// marker, case-insensitively. Used for psychological pattern flags.
func (s Session) HasTag(marker string) bool {
	marker = strings.ToLower(marker)
	for _, t := range s.Tags {
		if strings.Contains(strings.ToLower(t), marker) {
			return true
		}
	}
	for _, t := range s.EmotionTags {
		if strings.Contains(strings.ToLower(t), marker) {
			return true
		}
	}
	return false
}

// Psychological pattern markers recognized in session tags.
const (
	MarkerFOMO    = "fomo"
	MarkerRevenge = "revenge"
)
