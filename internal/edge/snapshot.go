package edge

import (
	"math"
	"sort"
	"time"

	"trading-journal/internal/journal"
)

// buildSnapshot computes the summary statistics and derived series over the
// (already range-filtered) sessions, sorted by date ascending.
func buildSnapshot(sessions []journal.Session, opts Options) Snapshot {
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	snap := Snapshot{
		AsOf:          asOf,
		RangeStart:    opts.RangeStart,
		RangeEnd:      opts.RangeEnd,
		Sessions:      len(sessions),
		EquityCurve:   []CurvePoint{},
		DrawdownCurve: []CurvePoint{},
		Histogram:     []HistogramBucket{},
		Weekdays:      []WeekdayBar{},
	}
	if len(sessions) == 0 {
		return snap
	}

	ordered := make([]journal.Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	pnls := make([]float64, 0, len(ordered))
	var grossProfit, grossLoss float64
	for i := range ordered {
		pnl := ordered[i].RecordedNet
		pnls = append(pnls, pnl)
		snap.TotalPnL += pnl
		switch {
		case pnl > 0:
			snap.Wins++
			grossProfit += pnl
		case pnl < 0:
			snap.Losses++
			grossLoss += -pnl
		}

		if snap.BestDay == nil || pnl > snap.BestDay.PnL {
			snap.BestDay = &DayResult{Date: ordered[i].Date, PnL: pnl}
		}
		if snap.WorstDay == nil || pnl < snap.WorstDay.PnL {
			snap.WorstDay = &DayResult{Date: ordered[i].Date, PnL: pnl}
		}
	}

	mean := snap.TotalPnL / float64(len(pnls))
	snap.MeanPnL = &mean
	median := medianOf(pnls)
	snap.MedianPnL = &median
	if sd, ok := sampleStdev(pnls, mean); ok {
		snap.StdevPnL = &sd
	}

	winRate := float64(snap.Wins) / float64(len(pnls))
	snap.WinRate = &winRate
	snap.ProfitFactor = profitFactor(grossProfit, grossLoss)
	snap.Expectancy = expectancy(len(pnls), snap.Wins, snap.Losses, grossProfit, grossLoss)

	snap.EquityCurve, snap.DrawdownCurve = buildCurves(ordered)
	snap.Histogram = buildHistogram(pnls, snap.StdevPnL)
	snap.Weekdays = buildWeekdayBars(ordered)

	return snap
}

// buildCurves produces the running cumulative PnL per date and its distance
// below the running peak. Sessions sharing a date collapse into one point.
func buildCurves(ordered []journal.Session) (equity, drawdown []CurvePoint) {
	var cum float64
	peak := math.Inf(-1)
	for i := 0; i < len(ordered); {
		date := ordered[i].Date
		for i < len(ordered) && ordered[i].Date.Equal(date) {
			cum += ordered[i].RecordedNet
			i++
		}
		if cum > peak {
			peak = cum
		}
		equity = append(equity, CurvePoint{Date: date, Value: cum})
		drawdown = append(drawdown, CurvePoint{Date: date, Value: cum - peak})
	}
	return equity, drawdown
}

// buildHistogram counts per-session PnL into adaptive-width buckets:
// width = clamp(round(stdev/2), 25, 200), with the range padded by one
// width below the minimum and above the maximum.
func buildHistogram(pnls []float64, stdev *float64) []HistogramBucket {
	if len(pnls) == 0 {
		return []HistogramBucket{}
	}

	width := 25.0
	if stdev != nil {
		width = math.Round(*stdev / 2)
		if width < 25 {
			width = 25
		} else if width > 200 {
			width = 200
		}
	}

	lo, hi := pnls[0], pnls[0]
	for _, p := range pnls {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	lo -= width
	hi += width

	count := int(math.Ceil((hi-lo)/width)) + 1
	buckets := make([]HistogramBucket, count)
	for i := range buckets {
		buckets[i].From = lo + float64(i)*width
		buckets[i].To = lo + float64(i+1)*width
	}
	for _, p := range pnls {
		idx := int((p - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= count {
			idx = count - 1
		}
		buckets[idx].Count++
	}
	return buckets
}

// buildWeekdayBars aggregates session count, win count, and PnL sum per
// weekday (0 = Sunday through 6 = Saturday), reporting win rate and average
// PnL for each weekday that saw activity.
func buildWeekdayBars(ordered []journal.Session) []WeekdayBar {
	var byDay [7]WeekdayBar
	for i := range ordered {
		wd := int(ordered[i].Date.Weekday())
		byDay[wd].Weekday = wd
		byDay[wd].Sessions++
		byDay[wd].PnL += ordered[i].RecordedNet
		if ordered[i].RecordedNet > 0 {
			byDay[wd].Wins++
		}
	}

	bars := make([]WeekdayBar, 0, 7)
	for wd := 0; wd < 7; wd++ {
		bar := byDay[wd]
		if bar.Sessions == 0 {
			continue
		}
		bar.Weekday = wd
		bar.WinRate = float64(bar.Wins) / float64(bar.Sessions)
		bar.AvgPnL = bar.PnL / float64(bar.Sessions)
		bars = append(bars, bar)
	}
	return bars
}

func medianOf(pnls []float64) float64 {
	sorted := make([]float64, len(pnls))
	copy(sorted, pnls)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// sampleStdev returns the sample standard deviation, or false when fewer
// than two data points make it undefined.
func sampleStdev(pnls []float64, mean float64) (float64, bool) {
	if len(pnls) < 2 {
		return 0, false
	}
	var ss float64
	for _, p := range pnls {
		d := p - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(pnls)-1)), true
}

// profitFactor is gross profit over gross loss: nil when both are zero, a
// large finite sentinel when only the loss side is zero.
func profitFactor(grossProfit, grossLoss float64) *float64 {
	if grossLoss == 0 {
		if grossProfit == 0 {
			return nil
		}
		pf := ProfitFactorCap
		return &pf
	}
	pf := grossProfit / grossLoss
	return &pf
}

// expectancy is P(win)*avgWin - P(loss)*avgLoss over per-session PnL, with
// avgLoss as a positive magnitude. Nil when there are no sessions.
func expectancy(n, wins, losses int, grossProfit, grossLoss float64) *float64 {
	if n == 0 {
		return nil
	}
	var avgWin, avgLoss float64
	if wins > 0 {
		avgWin = grossProfit / float64(wins)
	}
	if losses > 0 {
		avgLoss = grossLoss / float64(losses)
	}
	e := float64(wins)/float64(n)*avgWin - float64(losses)/float64(n)*avgLoss
	return &e
}
