package edge

import (
	"math"
	"testing"
	"time"

	"trading-journal/internal/journal"
)

// TestSnapshotStatistics covers the core summary stats on a small known
// series.
func TestSnapshotStatistics(t *testing.T) {
	sessions := []journal.Session{
		session("2025-03-03", 100),
		session("2025-03-04", -50),
		session("2025-03-05", 200),
		session("2025-03-06", 0),
		session("2025-03-07", -150),
	}

	result := BuildSnapshotAndEdges(sessions, Options{AsOf: day("2025-03-08")})
	snap := result.Snapshot

	if snap.Sessions != 5 || snap.Wins != 2 || snap.Losses != 2 {
		t.Errorf("Expected 5 sessions, 2 wins, 2 losses; got %d/%d/%d",
			snap.Sessions, snap.Wins, snap.Losses)
	}
	if !floatEquals(snap.TotalPnL, 100) {
		t.Errorf("Expected total 100, got %f", snap.TotalPnL)
	}
	if snap.MeanPnL == nil || !floatEquals(*snap.MeanPnL, 20) {
		t.Errorf("Expected mean 20, got %v", snap.MeanPnL)
	}
	if snap.MedianPnL == nil || !floatEquals(*snap.MedianPnL, 0) {
		t.Errorf("Expected median 0, got %v", snap.MedianPnL)
	}
	if snap.WinRate == nil || !floatEquals(*snap.WinRate, 0.4) {
		t.Errorf("Expected win rate 0.4, got %v", snap.WinRate)
	}
	// Gross profit 300, gross loss 200.
	if snap.ProfitFactor == nil || !floatEquals(*snap.ProfitFactor, 1.5) {
		t.Errorf("Expected profit factor 1.5, got %v", snap.ProfitFactor)
	}
	if snap.BestDay == nil || !floatEquals(snap.BestDay.PnL, 200) {
		t.Errorf("Expected best day 200, got %v", snap.BestDay)
	}
	if snap.WorstDay == nil || !floatEquals(snap.WorstDay.PnL, -150) {
		t.Errorf("Expected worst day -150, got %v", snap.WorstDay)
	}
	// Expectancy: 0.4*150 - 0.4*100 = 20.
	if snap.Expectancy == nil || !floatEquals(*snap.Expectancy, 20) {
		t.Errorf("Expected expectancy 20, got %v", snap.Expectancy)
	}
}

// TestSnapshotDegenerateInputs verifies empty and single-session inputs
// report nil for undefined statistics, never NaN or Inf.
func TestSnapshotDegenerateInputs(t *testing.T) {
	empty := BuildSnapshotAndEdges(nil, Options{}).Snapshot
	if empty.Sessions != 0 {
		t.Errorf("Expected 0 sessions, got %d", empty.Sessions)
	}
	if empty.MeanPnL != nil || empty.WinRate != nil || empty.ProfitFactor != nil ||
		empty.Expectancy != nil || empty.StdevPnL != nil {
		t.Error("Empty-input statistics must be nil")
	}
	if empty.EquityCurve == nil || empty.Histogram == nil || empty.Weekdays == nil {
		t.Error("Derived series must be empty slices, not nil")
	}

	single := BuildSnapshotAndEdges([]journal.Session{session("2025-03-03", 100)}, Options{}).Snapshot
	if single.StdevPnL != nil {
		t.Errorf("Sample stdev undefined at n=1, got %v", single.StdevPnL)
	}
	if single.MeanPnL == nil || !floatEquals(*single.MeanPnL, 100) {
		t.Errorf("Expected mean 100 at n=1, got %v", single.MeanPnL)
	}
}

// TestProfitFactorSentinel checks the all-wins sentinel and the all-zero nil.
func TestProfitFactorSentinel(t *testing.T) {
	if pf := profitFactor(500, 0); pf == nil || *pf != ProfitFactorCap {
		t.Errorf("Expected sentinel %v with zero gross loss, got %v", ProfitFactorCap, pf)
	}
	if pf := profitFactor(0, 0); pf != nil {
		t.Errorf("Expected nil profit factor with no wins or losses, got %v", *pf)
	}
	if pf := profitFactor(300, 200); pf == nil || !floatEquals(*pf, 1.5) {
		t.Errorf("Expected 1.5, got %v", pf)
	}
}

// TestEquityAndDrawdownCurves verifies cumulative equity and the <=0
// drawdown series.
func TestEquityAndDrawdownCurves(t *testing.T) {
	sessions := []journal.Session{
		session("2025-03-03", 100),
		session("2025-03-04", 200),
		session("2025-03-05", -150),
		session("2025-03-06", 50),
	}

	snap := BuildSnapshotAndEdges(sessions, Options{}).Snapshot

	wantEquity := []float64{100, 300, 150, 200}
	wantDrawdown := []float64{0, 0, -150, -100}
	if len(snap.EquityCurve) != len(wantEquity) {
		t.Fatalf("Expected %d curve points, got %d", len(wantEquity), len(snap.EquityCurve))
	}
	for i := range wantEquity {
		if !floatEquals(snap.EquityCurve[i].Value, wantEquity[i]) {
			t.Errorf("Equity[%d]: expected %f, got %f", i, wantEquity[i], snap.EquityCurve[i].Value)
		}
		if !floatEquals(snap.DrawdownCurve[i].Value, wantDrawdown[i]) {
			t.Errorf("Drawdown[%d]: expected %f, got %f", i, wantDrawdown[i], snap.DrawdownCurve[i].Value)
		}
		if snap.DrawdownCurve[i].Value > 0 {
			t.Errorf("Drawdown must never exceed zero, got %f", snap.DrawdownCurve[i].Value)
		}
	}
}

// TestCurvesSortedByDate verifies out-of-order input still yields a
// date-ascending equity curve.
func TestCurvesSortedByDate(t *testing.T) {
	sessions := []journal.Session{
		session("2025-03-05", -150),
		session("2025-03-03", 100),
		session("2025-03-04", 200),
	}

	snap := BuildSnapshotAndEdges(sessions, Options{}).Snapshot
	for i := 1; i < len(snap.EquityCurve); i++ {
		if !snap.EquityCurve[i].Date.After(snap.EquityCurve[i-1].Date) {
			t.Fatalf("Equity curve not date-ascending at index %d", i)
		}
	}
	if !floatEquals(snap.EquityCurve[len(snap.EquityCurve)-1].Value, 150) {
		t.Errorf("Expected final equity 150, got %f", snap.EquityCurve[len(snap.EquityCurve)-1].Value)
	}
}

// TestHistogramCompleteness verifies every session lands in exactly one
// bucket (the counts sum to n) across spread-out and tightly clustered
// inputs.
func TestHistogramCompleteness(t *testing.T) {
	cases := [][]float64{
		{100, -50, 200, 0, -150},
		{5, 6, 7, 5.5},                     // tight cluster, minimum width
		{-5000, 4000, 100, 0, -250, 12000}, // wide spread, width capped
		{42},                               // single session
	}

	for ci, pnls := range cases {
		sessions := make([]journal.Session, len(pnls))
		base := day("2025-03-03")
		for i, p := range pnls {
			sessions[i] = journal.Session{
				ID:          base.AddDate(0, 0, i).Format("2006-01-02"),
				Date:        base.AddDate(0, 0, i),
				RecordedNet: p,
			}
		}

		snap := BuildSnapshotAndEdges(sessions, Options{}).Snapshot
		total := 0
		for _, b := range snap.Histogram {
			total += b.Count
		}
		if total != len(pnls) {
			t.Errorf("Case %d: histogram counts sum to %d, expected %d", ci, total, len(pnls))
		}
		for i := 1; i < len(snap.Histogram); i++ {
			if !floatEquals(snap.Histogram[i].From, snap.Histogram[i-1].To) {
				t.Errorf("Case %d: bucket %d not contiguous", ci, i)
			}
		}
	}
}

// TestHistogramWidthClamp exercises both clamp ends of the adaptive width.
func TestHistogramWidthClamp(t *testing.T) {
	narrow := buildHistogram([]float64{1, 2, 3}, ptrFloat(2))
	if w := narrow[0].To - narrow[0].From; !floatEquals(w, 25) {
		t.Errorf("Expected minimum width 25, got %f", w)
	}

	wide := buildHistogram([]float64{-10000, 10000}, ptrFloat(5000))
	if w := wide[0].To - wide[0].From; !floatEquals(w, 200) {
		t.Errorf("Expected maximum width 200, got %f", w)
	}
}

func ptrFloat(f float64) *float64 { return &f }

// TestWeekdayBars verifies the per-weekday aggregation skips inactive days.
func TestWeekdayBars(t *testing.T) {
	sessions := []journal.Session{
		session("2025-03-03", 100), // Monday
		session("2025-03-10", -60), // Monday
		session("2025-03-05", 40),  // Wednesday
	}

	snap := BuildSnapshotAndEdges(sessions, Options{}).Snapshot
	if len(snap.Weekdays) != 2 {
		t.Fatalf("Expected 2 active weekdays, got %d", len(snap.Weekdays))
	}

	monday := snap.Weekdays[0]
	if monday.Weekday != int(time.Monday) || monday.Sessions != 2 || monday.Wins != 1 {
		t.Errorf("Unexpected Monday bar: %+v", monday)
	}
	if !floatEquals(monday.PnL, 40) || !floatEquals(monday.AvgPnL, 20) {
		t.Errorf("Expected Monday PnL 40 avg 20, got %f / %f", monday.PnL, monday.AvgPnL)
	}

	wednesday := snap.Weekdays[1]
	if wednesday.Weekday != int(time.Wednesday) || wednesday.Sessions != 1 {
		t.Errorf("Unexpected Wednesday bar: %+v", wednesday)
	}
}

// TestMedianEvenOdd covers both parities.
func TestMedianEvenOdd(t *testing.T) {
	if m := medianOf([]float64{3, 1, 2}); !floatEquals(m, 2) {
		t.Errorf("Expected median 2, got %f", m)
	}
	if m := medianOf([]float64{4, 1, 3, 2}); !floatEquals(m, 2.5) {
		t.Errorf("Expected median 2.5, got %f", m)
	}
}

// TestSampleStdev checks the n-1 denominator and the n<2 guard.
func TestSampleStdev(t *testing.T) {
	pnls := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := 5.0
	sd, ok := sampleStdev(pnls, mean)
	if !ok {
		t.Fatal("Expected stdev defined for n=8")
	}
	want := math.Sqrt(32.0 / 7.0)
	if !floatEquals(sd, want) {
		t.Errorf("Expected %f, got %f", want, sd)
	}

	if _, ok := sampleStdev([]float64{5}, 5); ok {
		t.Error("Stdev must be undefined for n=1")
	}
}
