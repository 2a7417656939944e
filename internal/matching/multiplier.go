package matching

import (
	"strings"

	"trading-journal/internal/journal"
)

// MultiplierTable maps futures root symbols to their contract multipliers.
// Roots not present resolve to 1.
type MultiplierTable map[string]float64

// DefaultMultipliers covers the common index, energy, and metals contracts
// plus their micro variants.
var DefaultMultipliers = MultiplierTable{
	"ES":  50,
	"MES": 5,
	"NQ":  20,
	"MNQ": 2,
	"YM":  5,
	"MYM": 0.5,
	"RTY": 50,
	"M2K": 5,
	"CL":  1000,
	"MCL": 100,
	"GC":  100,
	"MGC": 10,
	"SI":  5000,
	"NG":  10000,
}

const optionMultiplier = 100

// futuresRoot strips a trailing month-code letter plus one- or two-digit
// year from a futures symbol, e.g. "ESZ4" and "ESZ24" both map to "ES".
// Symbols that don't follow the convention are returned as-is. A leading
// slash (journal notation like "/ES") is dropped first.
func futuresRoot(symbol string) string {
	symbol = strings.TrimPrefix(symbol, "/")
	if symbol == "" {
		return symbol
	}

	// Trailing year: one or two digits.
	end := len(symbol)
	digits := 0
	for end > 0 && digits < 2 && symbol[end-1] >= '0' && symbol[end-1] <= '9' {
		end--
		digits++
	}
	if digits == 0 || end == 0 {
		return symbol
	}

	// Month code letter immediately before the year.
	if !strings.ContainsRune("FGHJKMNQUVXZ", rune(symbol[end-1])) {
		return symbol
	}
	root := symbol[:end-1]
	if root == "" {
		return symbol
	}
	return root
}

// contractMultiplier returns the dollar multiplier for one unit of price
// movement: options x100, futures per root lookup, everything else x1.
func contractMultiplier(symbol string, kind journal.InstrumentKind, table MultiplierTable) float64 {
	switch kind {
	case journal.KindOption:
		return optionMultiplier
	case journal.KindFuture:
		root := futuresRoot(symbol)
		if m, ok := table[root]; ok {
			return m
		}
		return 1
	default:
		return 1
	}
}
