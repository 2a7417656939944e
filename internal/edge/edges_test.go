package edge

import (
	"math"
	"testing"
	"time"

	"trading-journal/internal/journal"
)

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func day(dateStr string) time.Time {
	d, _ := time.Parse("2006-01-02", dateStr)
	return d
}

func session(dateStr string, pnl float64) journal.Session {
	return journal.Session{
		ID:          dateStr,
		Date:        day(dateStr),
		RecordedNet: pnl,
	}
}

// mondays returns n consecutive Mondays starting 2025-03-03.
func mondays(n int) []time.Time {
	start := day("2025-03-03")
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, 7*i)
	}
	return dates
}

func findWeekdayEdge(edges []Edge, weekday int) *Edge {
	for i := range edges {
		e := &edges[i]
		if e.Weekday != nil && *e.Weekday == weekday &&
			e.Symbol == nil && e.Kind == nil && e.TimeBucket == nil &&
			e.DTEBucket == nil && e.PlanRespected == nil &&
			e.FOMO == nil && e.Revenge == nil {
			return e
		}
	}
	return nil
}

func findGlobalEdge(edges []Edge) *Edge {
	for i := range edges {
		if edges[i].IsGlobal() {
			return &edges[i]
		}
	}
	return nil
}

// TestMondayEdgeAggregation covers the canonical weekday slice: 10 Monday
// sessions, 6 wins / 4 losses.
func TestMondayEdgeAggregation(t *testing.T) {
	pnls := []float64{100, 200, -50, 150, -80, 120, 90, -60, 110, -40}
	dates := mondays(10)

	sessions := make([]journal.Session, 10)
	for i := range sessions {
		sessions[i] = journal.Session{
			ID:          dates[i].Format("2006-01-02"),
			Date:        dates[i],
			RecordedNet: pnls[i],
		}
	}

	result := BuildSnapshotAndEdges(sessions, Options{})

	monday := findWeekdayEdge(result.Edges, int(time.Monday))
	if monday == nil {
		t.Fatal("Expected a Monday weekday edge")
	}
	if monday.Sessions != 10 || monday.Wins != 6 || monday.Losses != 4 {
		t.Errorf("Expected n=10 wins=6 losses=4, got n=%d wins=%d losses=%d",
			monday.Sessions, monday.Wins, monday.Losses)
	}
	if !floatEquals(monday.WinRate, 0.6) {
		t.Errorf("Expected raw win rate 0.6, got %f", monday.WinRate)
	}
	// (6+2)/(10+4)
	if !floatEquals(monday.ShrunkWinRate, 8.0/14.0) {
		t.Errorf("Expected shrunk win rate 8/14, got %f", monday.ShrunkWinRate)
	}
}

// TestThinSliceDropped verifies a 2-session slice disappears while the
// global slice survives at any sample size.
func TestThinSliceDropped(t *testing.T) {
	sessions := []journal.Session{
		session("2025-03-03", 100),
		session("2025-03-10", -50),
	}

	result := BuildSnapshotAndEdges(sessions, Options{})

	global := findGlobalEdge(result.Edges)
	if global == nil {
		t.Fatal("Global edge must always be retained")
	}
	if global.Sessions != 2 {
		t.Errorf("Expected global n=2, got %d", global.Sessions)
	}
	if monday := findWeekdayEdge(result.Edges, int(time.Monday)); monday != nil {
		t.Errorf("Expected 2-session Monday slice to be dropped, got n=%d", monday.Sessions)
	}
}

// TestShrinkageMonotonicity checks the Beta(2,2) pull: fixed raw rate,
// smaller samples land closer to 0.5, large samples converge to the raw
// rate.
func TestShrinkageMonotonicity(t *testing.T) {
	raw := 0.75
	prevDist := math.Inf(1)
	for _, n := range []int{4, 8, 40, 400, 4000} {
		wins := int(raw * float64(n))
		shrunk := shrunkWinRate(wins, n)
		dist := math.Abs(shrunk - raw)
		if dist >= prevDist {
			t.Errorf("Shrunk rate should approach the raw rate as n grows: n=%d dist=%f prev=%f",
				n, dist, prevDist)
		}
		// For a raw rate above 0.5 the shrunk value sits below it.
		if shrunk > raw {
			t.Errorf("Shrunk rate overshoots the raw rate at n=%d: %f > %f", n, shrunk, raw)
		}
		prevDist = dist
	}

	if !floatEquals(shrunkWinRate(2, 2), 4.0/6.0) {
		t.Errorf("Expected (2+2)/(2+4) for a 2-for-2 slice, got %f", shrunkWinRate(2, 2))
	}
}

// TestConfidenceBounds checks confidence(0)=0, the [0,1] range, and that it
// never decreases in n.
func TestConfidenceBounds(t *testing.T) {
	if confidence(0) != 0 {
		t.Errorf("Expected confidence(0)=0, got %f", confidence(0))
	}

	prev := 0.0
	for n := 0; n <= 10000; n += 7 {
		c := confidence(n)
		if c < 0 || c > 1 {
			t.Fatalf("Confidence out of [0,1] at n=%d: %f", n, c)
		}
		if c < prev {
			t.Fatalf("Confidence decreased at n=%d: %f < %f", n, c, prev)
		}
		prev = c
	}
	if confidence(10000) != 1 {
		t.Errorf("Expected confidence saturated at large n, got %f", confidence(10000))
	}
}

// TestScoreBounds pushes extreme inputs through the scoring function and
// requires [0,100] regardless.
func TestScoreBounds(t *testing.T) {
	hugeExp := 1e12
	negExp := -1e12
	pfLow := 0.1
	avgWin := 1.0
	avgLoss := 1e9

	cases := []Edge{
		{ShrunkWinRate: 1, Confidence: 1, Expectancy: &hugeExp},
		{ShrunkWinRate: 0, Confidence: 1, Expectancy: &negExp, ProfitFactor: &pfLow},
		{ShrunkWinRate: 1, Confidence: 0, Expectancy: &hugeExp},
		{ShrunkWinRate: 0.99, Confidence: 1, Expectancy: &hugeExp, AvgWin: &avgWin, AvgLoss: &avgLoss},
		{},
	}

	for i, e := range cases {
		score := edgeScore(&e)
		if score < 0 || score > 100 {
			t.Errorf("Case %d: score out of [0,100]: %f", i, score)
		}
	}
}

// TestScorePenalties verifies the two multiplicative risk penalties apply.
func TestScorePenalties(t *testing.T) {
	exp := 50.0
	base := Edge{ShrunkWinRate: 0.6, Confidence: 0.8, Expectancy: &exp}
	baseScore := edgeScore(&base)

	pf := 0.9
	penalized := base
	penalized.ProfitFactor = &pf
	if got := edgeScore(&penalized); !floatEquals(got, baseScore*lowPFPenalty) {
		t.Errorf("Expected low-PF penalty %f, got %f", baseScore*lowPFPenalty, got)
	}

	avgWin := 100.0
	avgLoss := 200.0
	risky := base
	risky.AvgWin = &avgWin
	risky.AvgLoss = &avgLoss
	if got := edgeScore(&risky); !floatEquals(got, baseScore*poorRiskPenalty) {
		t.Errorf("Expected poor-risk penalty %f, got %f", baseScore*poorRiskPenalty, got)
	}
}

// TestEdgeRanking verifies edges come back sorted by score descending with
// the session count breaking ties.
func TestEdgeRanking(t *testing.T) {
	sessions := make([]journal.Session, 0, 20)
	for i, d := range mondays(10) {
		pnl := 100.0
		if i >= 8 {
			pnl = -50
		}
		sessions = append(sessions, journal.Session{ID: d.Format("2006-01-02"), Date: d, RecordedNet: pnl})
	}
	// Tuesdays trend losing.
	tuesday := day("2025-03-04")
	for i := 0; i < 10; i++ {
		d := tuesday.AddDate(0, 0, 7*i)
		pnl := -100.0
		if i >= 8 {
			pnl = 40
		}
		sessions = append(sessions, journal.Session{ID: d.Format("2006-01-02"), Date: d, RecordedNet: pnl})
	}

	result := BuildSnapshotAndEdges(sessions, Options{})
	for i := 1; i < len(result.Edges); i++ {
		prev, cur := result.Edges[i-1], result.Edges[i]
		if cur.Score > prev.Score {
			t.Fatalf("Edges not sorted by score at index %d: %f > %f", i, cur.Score, prev.Score)
		}
		if cur.Score == prev.Score && cur.Sessions > prev.Sessions {
			t.Fatalf("Tie at index %d not broken by session count", i)
		}
	}

	monday := findWeekdayEdge(result.Edges, int(time.Monday))
	tue := findWeekdayEdge(result.Edges, int(time.Tuesday))
	if monday == nil || tue == nil {
		t.Fatal("Expected both weekday edges")
	}
	if monday.Score <= tue.Score {
		t.Errorf("Winning Monday slice should outscore losing Tuesday slice: %f vs %f",
			monday.Score, tue.Score)
	}
}

// TestMaxEdgesTruncation verifies the stored-edge cap applies after ranking.
func TestMaxEdgesTruncation(t *testing.T) {
	sessions := make([]journal.Session, 0, 12)
	for _, d := range mondays(12) {
		sessions = append(sessions, journal.Session{
			ID:          d.Format("2006-01-02"),
			Date:        d,
			RecordedNet: 100,
			Entries: []journal.Leg{{
				Tag: journal.TagEntry, Symbol: "SPY", Kind: journal.KindStock,
				Side: journal.SideLong, Price: 500, Quantity: 1, ClockTime: "09:30",
			}},
		})
	}

	full := BuildSnapshotAndEdges(sessions, Options{})
	if len(full.Edges) < 3 {
		t.Fatalf("Expected at least 3 edges before truncation, got %d", len(full.Edges))
	}

	capped := BuildSnapshotAndEdges(sessions, Options{MaxEdges: 2})
	if len(capped.Edges) != 2 {
		t.Errorf("Expected 2 edges after truncation, got %d", len(capped.Edges))
	}
	if capped.Edges[0].Score < capped.Edges[1].Score {
		t.Errorf("Truncation must keep the top-ranked edges")
	}
}

// TestMalformedSessionsFiltered verifies zero dates and non-finite PnL are
// dropped before computation.
func TestMalformedSessionsFiltered(t *testing.T) {
	sessions := []journal.Session{
		session("2025-03-03", 100),
		{ID: "no-date", RecordedNet: 50},
		{ID: "nan", Date: day("2025-03-04"), RecordedNet: math.NaN()},
		{ID: "inf", Date: day("2025-03-05"), RecordedNet: math.Inf(1)},
	}

	result := BuildSnapshotAndEdges(sessions, Options{})
	if result.Snapshot.Sessions != 1 {
		t.Errorf("Expected 1 usable session, got %d", result.Snapshot.Sessions)
	}
	global := findGlobalEdge(result.Edges)
	if global == nil || global.Sessions != 1 {
		t.Errorf("Expected global edge over 1 session, got %+v", global)
	}
}

// TestRangeWindowInclusive checks the inclusive date window.
func TestRangeWindowInclusive(t *testing.T) {
	sessions := []journal.Session{
		session("2025-03-03", 100),
		session("2025-03-10", 200),
		session("2025-03-17", 300),
	}
	start := day("2025-03-03")
	end := day("2025-03-10")

	result := BuildSnapshotAndEdges(sessions, Options{RangeStart: &start, RangeEnd: &end})
	if result.Snapshot.Sessions != 2 {
		t.Errorf("Expected 2 sessions inside the inclusive window, got %d", result.Snapshot.Sessions)
	}
	if !floatEquals(result.Snapshot.TotalPnL, 300) {
		t.Errorf("Expected total 300, got %f", result.Snapshot.TotalPnL)
	}
}

// TestHeatmapShape verifies only weekday-by-time cells survive and every
// other dimension is unconstrained.
func TestHeatmapShape(t *testing.T) {
	sessions := make([]journal.Session, 0, 8)
	for _, d := range mondays(8) {
		sessions = append(sessions, journal.Session{
			ID:          d.Format("2006-01-02"),
			Date:        d,
			RecordedNet: 100,
			Entries: []journal.Leg{{
				Tag: journal.TagEntry, Symbol: "SPY", Kind: journal.KindStock,
				Side: journal.SideLong, Price: 500, Quantity: 1, ClockTime: "09:42",
			}},
		})
	}

	result := BuildSnapshotAndEdges(sessions, Options{})
	cells := Heatmap(result.Edges)

	if len(cells) != 1 {
		t.Fatalf("Expected 1 heatmap cell, got %d", len(cells))
	}
	cell := cells[0]
	if cell.Weekday == nil || *cell.Weekday != int(time.Monday) {
		t.Errorf("Expected Monday cell, got %+v", cell.Weekday)
	}
	if cell.TimeBucket == nil || *cell.TimeBucket != "09:30" {
		t.Errorf("Expected 09:30 bucket, got %v", cell.TimeBucket)
	}
	if cell.Symbol != nil || cell.Kind != nil {
		t.Error("Heatmap cells must not constrain symbol or kind")
	}
}

// TestPsychologicalTagDetection verifies the FOMO and revenge markers are
// detected case-insensitively as substrings across both tag lists.
func TestPsychologicalTagDetection(t *testing.T) {
	sessions := make([]journal.Session, 0, 6)
	for i, d := range mondays(6) {
		s := journal.Session{ID: d.Format("2006-01-02"), Date: d, RecordedNet: -50}
		if i < 3 {
			s.Tags = []string{"FOMO entry"}
		} else {
			s.EmotionTags = []string{"Revenge Trading"}
		}
		sessions = append(sessions, s)
	}

	result := BuildSnapshotAndEdges(sessions, Options{})

	var fomoTrue, revengeTrue *Edge
	for i := range result.Edges {
		e := &result.Edges[i]
		if e.FOMO != nil && *e.FOMO && e.Weekday == nil {
			fomoTrue = e
		}
		if e.Revenge != nil && *e.Revenge && e.Weekday == nil {
			revengeTrue = e
		}
	}
	if fomoTrue == nil || fomoTrue.Sessions != 3 {
		t.Errorf("Expected a 3-session FOMO slice, got %+v", fomoTrue)
	}
	if revengeTrue == nil || revengeTrue.Sessions != 3 {
		t.Errorf("Expected a 3-session revenge slice, got %+v", revengeTrue)
	}
}

// TestTimeBucketFromEarliestEntry verifies the session's bucket comes from
// the earliest parsable entry-leg time, floored to 30 minutes.
func TestTimeBucketFromEarliestEntry(t *testing.T) {
	s := journal.Session{
		ID:          "s1",
		Date:        day("2025-03-03"),
		RecordedNet: 100,
		Entries: []journal.Leg{
			{Tag: journal.TagEntry, Symbol: "A", Kind: journal.KindStock, Side: journal.SideLong, Price: 1, Quantity: 1, ClockTime: "10:45"},
			{Tag: journal.TagEntry, Symbol: "B", Kind: journal.KindStock, Side: journal.SideLong, Price: 1, Quantity: 1, ClockTime: "09:47"},
			{Tag: journal.TagEntry, Symbol: "C", Kind: journal.KindStock, Side: journal.SideLong, Price: 1, Quantity: 1, ClockTime: "bogus"},
		},
	}

	f := sessionFeatures(&s)
	if f.timeBucket != 9*60+30 {
		t.Errorf("Expected bucket 09:30 (570), got %d", f.timeBucket)
	}
	if timeBucketLabel(f.timeBucket) != "09:30" {
		t.Errorf("Expected label 09:30, got %s", timeBucketLabel(f.timeBucket))
	}
}

// TestDTEBucketFromSmallestDTE verifies bucketing uses the minimum DTE any
// leg carries.
func TestDTEBucketFromSmallestDTE(t *testing.T) {
	one := 1
	ten := 10
	s := journal.Session{
		ID:          "s1",
		Date:        day("2025-03-03"),
		RecordedNet: 100,
		Entries: []journal.Leg{
			{Tag: journal.TagEntry, Symbol: "A", Kind: journal.KindOption, Side: journal.SideLong, Orientation: journal.OrientationDebit, Price: 1, Quantity: 1, DTE: &ten},
		},
		Exits: []journal.Leg{
			{Tag: journal.TagExit, Symbol: "A", Kind: journal.KindOption, Side: journal.SideLong, Orientation: journal.OrientationDebit, Price: 2, Quantity: 1, DTE: &one},
		},
	}

	f := sessionFeatures(&s)
	if f.dteBucket != "1-2" {
		t.Errorf("Expected DTE bucket 1-2 from the smallest leg DTE, got %q", f.dteBucket)
	}

	buckets := []struct {
		dte    int
		bucket string
	}{
		{0, "0"}, {-1, "0"}, {1, "1-2"}, {2, "1-2"}, {3, "3-7"}, {7, "3-7"},
		{8, "8-30"}, {30, "8-30"}, {31, "30+"}, {365, "30+"},
	}
	for _, tt := range buckets {
		if got := dteBucketFor(tt.dte); got != tt.bucket {
			t.Errorf("dteBucketFor(%d): expected %q, got %q", tt.dte, tt.bucket, got)
		}
	}
}
