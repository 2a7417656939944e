package edge

import (
	"fmt"
	"sort"

	"trading-journal/internal/journal"
	"trading-journal/internal/matching"
)

// Sentinel values inside accumulator keys. Keys are comparable structs, so
// "no constraint on this dimension" needs an in-band representation.
const (
	anyInt = -1
)

// triState encodes an optional boolean dimension inside a comparable key.
type triState int8

const (
	triAny   triState = -1
	triFalse triState = 0
	triTrue  triState = 1
)

func triOf(b bool) triState {
	if b {
		return triTrue
	}
	return triFalse
}

func (t triState) boolPtr() *bool {
	if t == triAny {
		return nil
	}
	b := t == triTrue
	return &b
}

// sliceKey identifies one dimensional slice. Comparable by construction;
// empty strings and anyInt/triAny mean the dimension is unconstrained.
type sliceKey struct {
	symbol     string
	kind       journal.InstrumentKind
	weekday    int // 0-6, anyInt for all
	timeBucket int // bucket start in minutes since midnight, anyInt for all
	dteBucket  string
	plan       triState
	fomo       triState
	revenge    triState
}

var globalKey = sliceKey{weekday: anyInt, timeBucket: anyInt, plan: triAny, fomo: triAny, revenge: triAny}

// features are the dimensional values one session contributes with.
type features struct {
	pnl        float64
	weekday    int
	timeBucket int    // anyInt when no entry leg carries a parsable time
	dteBucket  string // "" when no leg carries a DTE
	hasPlan    bool
	plan       bool
	fomo       bool
	revenge    bool
	symbols    []string
	kinds      []journal.InstrumentKind
}

// timeBucketMinutes floors a clock time to its 30-minute bucket start.
func timeBucketMinutes(min int) int {
	return (min / 30) * 30
}

// timeBucketLabel renders a bucket start as "HH:MM".
func timeBucketLabel(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// dteBucketFor buckets days-to-expiration the way the journal displays it.
func dteBucketFor(dte int) string {
	switch {
	case dte <= 0:
		return "0"
	case dte <= 2:
		return "1-2"
	case dte <= 7:
		return "3-7"
	case dte <= 30:
		return "8-30"
	default:
		return "30+"
	}
}

// sessionFeatures derives the dimensional values for one session: weekday
// from the date, time bucket from the earliest parsable entry-leg time, DTE
// bucket from the smallest DTE any leg carries, psychological flags from the
// tag lists, and the unique symbols and kinds the day touched.
func sessionFeatures(s *journal.Session) features {
	f := features{
		pnl:        s.RecordedNet,
		weekday:    int(s.Date.Weekday()),
		timeBucket: anyInt,
		fomo:       s.HasTag(journal.MarkerFOMO),
		revenge:    s.HasTag(journal.MarkerRevenge),
	}
	if s.PlanRespected != nil {
		f.hasPlan = true
		f.plan = *s.PlanRespected
	}

	earliest := -1
	minDTE := 0
	haveDTE := false
	symbols := make(map[string]bool)
	kinds := make(map[journal.InstrumentKind]bool)

	scan := func(legs []journal.Leg, entries bool) {
		for i := range legs {
			leg := &legs[i]
			sym := leg.NormalizedSymbol()
			if sym != "" {
				symbols[sym] = true
				kinds[leg.Kind] = true
			}
			if leg.DTE != nil && (!haveDTE || *leg.DTE < minDTE) {
				haveDTE = true
				minDTE = *leg.DTE
			}
			if entries {
				if min, ok := matching.ParseClockTime(leg.ClockTime); ok && (earliest < 0 || min < earliest) {
					earliest = min
				}
			}
		}
	}
	scan(s.Entries, true)
	scan(s.Exits, false)

	if earliest >= 0 {
		f.timeBucket = timeBucketMinutes(earliest)
	}
	if haveDTE {
		f.dteBucket = dteBucketFor(minDTE)
	}

	f.symbols = make([]string, 0, len(symbols))
	for sym := range symbols {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)

	f.kinds = make([]journal.InstrumentKind, 0, len(kinds))
	for k := range kinds {
		f.kinds = append(f.kinds, k)
	}
	sort.Slice(f.kinds, func(i, j int) bool { return f.kinds[i] < f.kinds[j] })

	return f
}

// sliceKeys enumerates the fixed, hand-chosen dimension combinations this
// session contributes to. This list is the combinatorial-explosion control:
// never a full Cartesian product over the dimension space.
func sliceKeys(f features) []sliceKey {
	base := globalKey
	keys := []sliceKey{base}

	// Single-dimension slices.
	k := base
	k.weekday = f.weekday
	keys = append(keys, k)

	if f.timeBucket != anyInt {
		k = base
		k.timeBucket = f.timeBucket
		keys = append(keys, k)
	}
	if f.dteBucket != "" {
		k = base
		k.dteBucket = f.dteBucket
		keys = append(keys, k)
	}
	if f.hasPlan {
		k = base
		k.plan = triOf(f.plan)
		keys = append(keys, k)
	}
	k = base
	k.fomo = triOf(f.fomo)
	keys = append(keys, k)

	k = base
	k.revenge = triOf(f.revenge)
	keys = append(keys, k)

	// Weekday pairings.
	if f.timeBucket != anyInt {
		k = base
		k.weekday = f.weekday
		k.timeBucket = f.timeBucket
		keys = append(keys, k)
	}
	if f.hasPlan {
		k = base
		k.weekday = f.weekday
		k.plan = triOf(f.plan)
		keys = append(keys, k)
	}

	// Per-symbol slices.
	for _, sym := range f.symbols {
		k = base
		k.symbol = sym
		keys = append(keys, k)

		k = base
		k.symbol = sym
		k.weekday = f.weekday
		keys = append(keys, k)

		if f.timeBucket != anyInt {
			k = base
			k.symbol = sym
			k.timeBucket = f.timeBucket
			keys = append(keys, k)

			k = base
			k.symbol = sym
			k.weekday = f.weekday
			k.timeBucket = f.timeBucket
			keys = append(keys, k)
		}
		if f.dteBucket != "" {
			k = base
			k.symbol = sym
			k.dteBucket = f.dteBucket
			keys = append(keys, k)
		}
		if f.hasPlan {
			k = base
			k.symbol = sym
			k.plan = triOf(f.plan)
			keys = append(keys, k)
		}
	}

	// Per-kind slices.
	for _, kind := range f.kinds {
		k = base
		k.kind = kind
		keys = append(keys, k)

		k = base
		k.kind = kind
		k.weekday = f.weekday
		keys = append(keys, k)

		if f.timeBucket != anyInt {
			k = base
			k.kind = kind
			k.timeBucket = f.timeBucket
			keys = append(keys, k)
		}
		if f.dteBucket != "" {
			k = base
			k.kind = kind
			k.dteBucket = f.dteBucket
			keys = append(keys, k)
		}
	}

	return keys
}
