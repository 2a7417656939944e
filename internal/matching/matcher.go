package matching

import (
	"math"
	"sort"

	"trading-journal/internal/journal"
)

// Matcher converts a day's raw entry/exit legs into closed, priced trades.
// The zero value is not usable; construct with NewMatcher.
type Matcher struct {
	multipliers MultiplierTable
}

// NewMatcher creates a matcher using the default futures multiplier table.
func NewMatcher() *Matcher {
	return &Matcher{multipliers: DefaultMultipliers}
}

// NewMatcherWithMultipliers creates a matcher with an injected futures
// root-to-multiplier table. Unknown roots still resolve to 1.
func NewMatcherWithMultipliers(table MultiplierTable) *Matcher {
	if table == nil {
		table = DefaultMultipliers
	}
	return &Matcher{multipliers: table}
}

// MatchTrades processes sessions independently (no cross-day matching) and
// returns every closed trade plus drop/unmatched counters. Input legs are
// never mutated.
func (m *Matcher) MatchTrades(sessions []journal.Session) ([]MatchedTrade, Diagnostics) {
	var trades []MatchedTrade
	var diag Diagnostics

	for i := range sessions {
		dayTrades := m.matchSession(&sessions[i], &diag)
		trades = append(trades, dayTrades...)
	}

	return trades, diag
}

// matchSession runs FIFO matching and reconciliation for a single session.
func (m *Matcher) matchSession(s *journal.Session, diag *Diagnostics) []MatchedTrade {
	// Build one FIFO queue of open lots per inventory key.
	queues := make(map[lotKey][]lot)
	for _, leg := range s.Entries {
		if !legValid(leg) {
			diag.SkippedLegs++
			continue
		}
		timeMin, timeOK := ParseClockTime(leg.ClockTime)
		queues[keyFor(leg)] = append(queues[keyFor(leg)], lot{
			remaining: leg.Quantity,
			price:     leg.Price,
			rawTime:   leg.ClockTime,
			timeMin:   timeMin,
			timeOK:    timeOK,
		})
	}

	// Exits sorted by clock time ascending; unparsable times sort last,
	// keeping their original order among themselves.
	exits := make([]journal.Leg, 0, len(s.Exits))
	for _, leg := range s.Exits {
		if !legValid(leg) {
			diag.SkippedLegs++
			continue
		}
		exits = append(exits, leg)
	}
	sort.SliceStable(exits, func(i, j int) bool {
		ti, okI := ParseClockTime(exits[i].ClockTime)
		tj, okJ := ParseClockTime(exits[j].ClockTime)
		if okI != okJ {
			return okI
		}
		if !okI {
			return false
		}
		return ti < tj
	})

	var trades []MatchedTrade
	for _, exit := range exits {
		key := keyFor(exit)
		queue := queues[key]
		if len(queue) == 0 {
			// No open inventory for this key: zero trades, not an error.
			diag.UnmatchedExits++
			continue
		}

		exitMin, exitOK := ParseClockTime(exit.ClockTime)
		remaining := exit.Quantity

		for remaining > 0 && len(queue) > 0 {
			entry := &queue[0]
			closed := math.Min(entry.remaining, remaining)

			trades = append(trades, MatchedTrade{
				SessionID:      s.ID,
				Date:           s.Date,
				Symbol:         key.symbol,
				Kind:           key.kind,
				Side:           key.side,
				Orientation:    key.orientation,
				EntryTime:      entry.rawTime,
				ExitTime:       exit.ClockTime,
				HoldingMinutes: holdingMinutes(entry.timeMin, entry.timeOK, exitMin, exitOK),
				Quantity:       closed,
				EntryPrice:     entry.price,
				ExitPrice:      exit.Price,
				PnL:            m.tradePnL(key, entry.price, exit.Price, closed),
			})

			entry.remaining -= closed
			remaining -= closed
			if entry.remaining <= 0 {
				queue = queue[1:]
			}
		}
		queues[key] = queue
	}

	for _, queue := range queues {
		diag.OpenLots += len(queue)
	}

	reconcile(s, trades, diag)
	return trades
}

// tradePnL applies the sign rule and contract multiplier. For options the
// sign follows premium orientation (a credit position profits when price
// falls back below the collected premium); for everything else it follows
// the position side.
func (m *Matcher) tradePnL(key lotKey, entryPrice, exitPrice, qty float64) float64 {
	sign := 1.0
	if key.kind == journal.KindOption {
		if key.orientation == journal.OrientationCredit {
			sign = -1
		}
	} else if key.side == journal.SideShort {
		sign = -1
	}
	mult := contractMultiplier(key.symbol, key.kind, m.multipliers)
	return (exitPrice - entryPrice) * qty * sign * mult
}

// reconcile forces the session's trade-level PnL to agree with the recorded
// daily net the rest of the journal displays. When the computed sum is
// non-zero every trade is rescaled by recorded/computed, preserving relative
// weighting; when the computed sum is zero the recorded net is distributed
// proportionally to each trade's share of the day's closed quantity.
//
// The recorded net is treated as authoritative even when it diverges sharply
// from the computed sum.
func reconcile(s *journal.Session, trades []MatchedTrade, diag *Diagnostics) {
	if s.RecordedNet == 0 || len(trades) == 0 {
		return
	}

	var computed float64
	for i := range trades {
		computed += trades[i].PnL
	}

	if computed != 0 {
		factor := s.RecordedNet / computed
		for i := range trades {
			trades[i].PnL *= factor
		}
		diag.RescaledSessions++
		return
	}

	var totalQty float64
	for i := range trades {
		totalQty += trades[i].Quantity
	}
	if totalQty == 0 {
		return
	}
	for i := range trades {
		trades[i].PnL = s.RecordedNet * trades[i].Quantity / totalQty
	}
	diag.RedistributedDays++
}

// legValid filters out malformed legs: non-positive price or quantity,
// non-finite values, empty symbols. They are skipped silently per the
// engine's degradation contract, counted in Diagnostics.
func legValid(l journal.Leg) bool {
	if l.NormalizedSymbol() == "" {
		return false
	}
	if l.Price <= 0 || math.IsNaN(l.Price) || math.IsInf(l.Price, 0) {
		return false
	}
	if l.Quantity <= 0 || math.IsNaN(l.Quantity) || math.IsInf(l.Quantity, 0) {
		return false
	}
	return true
}

func holdingMinutes(entryMin int, entryOK bool, exitMin int, exitOK bool) *int {
	if !entryOK || !exitOK || exitMin < entryMin {
		return nil
	}
	d := exitMin - entryMin
	return &d
}
