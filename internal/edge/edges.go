package edge

import (
	"math"
	"sort"

	"trading-journal/internal/journal"
)

// Scoring weights and penalties for the composite edge score.
const (
	winRateWeight   = 0.55
	returnWeight    = 0.45
	expectancyScale = 200.0
	lowPFPenalty    = 0.85
	poorRiskPenalty = 0.90
	poorRiskRatio   = 1.5
)

// accumulator folds session results for one dimensional slice. Merging two
// accumulators is a field-wise sum, so a parallel map-then-merge over
// sessions would produce identical results in any order.
type accumulator struct {
	n           int
	wins        int
	losses      int
	sum         float64
	grossProfit float64
	grossLoss   float64
}

func (a *accumulator) add(pnl float64) {
	a.n++
	a.sum += pnl
	switch {
	case pnl > 0:
		a.wins++
		a.grossProfit += pnl
	case pnl < 0:
		a.losses++
		a.grossLoss += -pnl
	}
}

// BuildSnapshotAndEdges computes the performance snapshot and the ranked
// dimensional edges over the given sessions. Sessions outside the optional
// [RangeStart, RangeEnd] window or carrying a non-finite recorded PnL are
// dropped from computation rather than failing the run.
func BuildSnapshotAndEdges(sessions []journal.Session, opts Options) Result {
	maxEdges := opts.MaxEdges
	if maxEdges <= 0 {
		maxEdges = DefaultMaxEdges
	}

	usable := filterSessions(sessions, opts)

	snap := buildSnapshot(usable, opts)
	edges := buildEdges(usable, maxEdges)

	return Result{Snapshot: snap, Edges: edges}
}

// filterSessions drops sessions outside the requested window and sessions
// whose inputs are unusable (zero date, NaN/Inf recorded PnL).
func filterSessions(sessions []journal.Session, opts Options) []journal.Session {
	usable := make([]journal.Session, 0, len(sessions))
	for i := range sessions {
		s := sessions[i]
		if s.Date.IsZero() {
			continue
		}
		if math.IsNaN(s.RecordedNet) || math.IsInf(s.RecordedNet, 0) {
			continue
		}
		if opts.RangeStart != nil && s.Date.Before(*opts.RangeStart) {
			continue
		}
		if opts.RangeEnd != nil && s.Date.After(*opts.RangeEnd) {
			continue
		}
		usable = append(usable, s)
	}
	return usable
}

// buildEdges folds every session into the fixed slice list, computes per-
// slice metrics, drops thin non-global slices, and returns the survivors
// ranked by score.
func buildEdges(sessions []journal.Session, maxEdges int) []Edge {
	accs := make(map[sliceKey]*accumulator)
	order := make([]sliceKey, 0) // first-seen order, for deterministic ties

	for i := range sessions {
		f := sessionFeatures(&sessions[i])
		for _, key := range sliceKeys(f) {
			acc, ok := accs[key]
			if !ok {
				acc = &accumulator{}
				accs[key] = acc
				order = append(order, key)
			}
			acc.add(f.pnl)
		}
	}

	edges := make([]Edge, 0, len(accs))
	for _, key := range order {
		acc := accs[key]
		e := finishEdge(key, acc)
		if e.Sessions < MinSliceSessions && !e.IsGlobal() {
			continue
		}
		edges = append(edges, e)
	}

	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Score != edges[j].Score {
			return edges[i].Score > edges[j].Score
		}
		return edges[i].Sessions > edges[j].Sessions
	})
	if len(edges) > maxEdges {
		edges = edges[:maxEdges]
	}
	return edges
}

// finishEdge computes the per-slice metrics once all sessions are folded in.
func finishEdge(key sliceKey, acc *accumulator) Edge {
	e := Edge{
		Sessions: acc.n,
		Wins:     acc.wins,
		Losses:   acc.losses,
	}

	if key.symbol != "" {
		sym := key.symbol
		e.Symbol = &sym
	}
	if key.kind != "" {
		kind := string(key.kind)
		e.Kind = &kind
	}
	if key.weekday != anyInt {
		wd := key.weekday
		e.Weekday = &wd
	}
	if key.timeBucket != anyInt {
		label := timeBucketLabel(key.timeBucket)
		e.TimeBucket = &label
	}
	if key.dteBucket != "" {
		b := key.dteBucket
		e.DTEBucket = &b
	}
	e.PlanRespected = key.plan.boolPtr()
	e.FOMO = key.fomo.boolPtr()
	e.Revenge = key.revenge.boolPtr()

	if acc.n > 0 {
		e.WinRate = float64(acc.wins) / float64(acc.n)
		e.AvgPnL = acc.sum / float64(acc.n)
	}
	e.ShrunkWinRate = shrunkWinRate(acc.wins, acc.n)
	e.Confidence = confidence(acc.n)
	e.ProfitFactor = profitFactor(acc.grossProfit, acc.grossLoss)
	e.Expectancy = expectancy(acc.n, acc.wins, acc.losses, acc.grossProfit, acc.grossLoss)
	if acc.wins > 0 {
		avgWin := acc.grossProfit / float64(acc.wins)
		e.AvgWin = &avgWin
	}
	if acc.losses > 0 {
		avgLoss := acc.grossLoss / float64(acc.losses)
		e.AvgLoss = &avgLoss
	}

	e.Score = edgeScore(&e)
	return e
}

// shrunkWinRate is the Beta(2,2) posterior mean (wins+2)/(n+4). It pulls
// small-sample slices toward 50% so a 2-trade 100%-win slice cannot outrank
// a 200-trade 58%-win slice.
func shrunkWinRate(wins, n int) float64 {
	return (float64(wins) + 2) / (float64(n) + 4)
}

// confidence is clamp(log10(n+1)/2, 0, 1): zero at n=0, saturating toward
// 1.0 around n = 99.
func confidence(n int) float64 {
	c := math.Log10(float64(n)+1) / 2
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// edgeScore blends shrunk win probability with a tanh-normalized expectancy
// term, scales by confidence, then applies risk penalties: profit factor
// below 1, and loss/win ratio above 1.5 (poor risk:reward even when the win
// rate looks fine).
func edgeScore(e *Edge) float64 {
	normReturn := 0.5
	if e.Expectancy != nil {
		normReturn = (math.Tanh(*e.Expectancy/expectancyScale) + 1) / 2
	}

	score := (winRateWeight*e.ShrunkWinRate + returnWeight*normReturn) * e.Confidence * 100

	if e.ProfitFactor != nil && *e.ProfitFactor < 1 {
		score *= lowPFPenalty
	}
	if e.AvgWin != nil && e.AvgLoss != nil && *e.AvgWin > 0 && *e.AvgLoss / *e.AvgWin > poorRiskRatio {
		score *= poorRiskPenalty
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Heatmap filters edges down to the weekday-by-time-bucket shape (every
// other dimension unconstrained), capped at HeatmapMaxCells entries.
func Heatmap(edges []Edge) []Edge {
	cells := make([]Edge, 0)
	for i := range edges {
		e := edges[i]
		if e.Weekday == nil || e.TimeBucket == nil {
			continue
		}
		if e.Symbol != nil || e.Kind != nil || e.DTEBucket != nil ||
			e.PlanRespected != nil || e.FOMO != nil || e.Revenge != nil {
			continue
		}
		cells = append(cells, e)
		if len(cells) == HeatmapMaxCells {
			break
		}
	}
	return cells
}
