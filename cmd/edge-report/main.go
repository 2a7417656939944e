package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"trading-journal/internal/edge"
	"trading-journal/internal/journal"
	"trading-journal/internal/matching"
)

func main() {
	// Try multiple locations for .env
	exe, _ := os.Executable()
	exeDir := filepath.Dir(exe)
	godotenv.Load()
	godotenv.Load(".env")
	godotenv.Load(filepath.Join(exeDir, ".env"))
	godotenv.Load(filepath.Join(exeDir, "..", "..", ".env"))

	var (
		file     = flag.String("file", "", "journal export file (JSON array of sessions)")
		startStr = flag.String("start", "", "range start (YYYY-MM-DD)")
		endStr   = flag.String("end", "", "range end (YYYY-MM-DD)")
		top      = flag.Int("top", 20, "number of edges to print")
	)
	flag.Parse()

	if *file == "" {
		*file = os.Getenv("JOURNAL_EXPORT_FILE")
	}
	if *file == "" {
		fmt.Println("❌ -file or JOURNAL_EXPORT_FILE required")
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Printf("❌ Failed to read %s: %v\n", *file, err)
		os.Exit(1)
	}

	var sessions []journal.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		fmt.Printf("❌ Failed to parse export file: %v\n", err)
		os.Exit(1)
	}

	opts := edge.Options{}
	if t, err := time.Parse("2006-01-02", *startStr); err == nil && *startStr != "" {
		opts.RangeStart = &t
	}
	if t, err := time.Parse("2006-01-02", *endStr); err == nil && *endStr != "" {
		opts.RangeEnd = &t
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("📊 TRADING EDGE REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("   Sessions loaded: %d\n", len(sessions))

	// Matching diagnostics first: dropped input never fails the report but
	// the operator should see the counts.
	matcher := matching.NewMatcher()
	trades, diag := matcher.MatchTrades(sessions)
	fmt.Printf("   Closed trades reconstructed: %d\n", len(trades))
	if diag.SkippedLegs > 0 || diag.UnmatchedExits > 0 || diag.OpenLots > 0 {
		fmt.Printf("   ⚠️  Skipped legs: %d, unmatched exits: %d, open lots: %d\n",
			diag.SkippedLegs, diag.UnmatchedExits, diag.OpenLots)
	}

	result := edge.BuildSnapshotAndEdges(sessions, opts)
	snap := result.Snapshot

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("💰 OVERALL PERFORMANCE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("   Trading days:  %d (W %d / L %d)\n",
		snap.Sessions, snap.Wins, snap.Losses)
	fmt.Printf("   Total PnL:     %+.2f\n", snap.TotalPnL)
	printStat("Win rate", snap.WinRate, "%.1f%%", 100)
	printStat("Mean day", snap.MeanPnL, "%+.2f", 1)
	printStat("Median day", snap.MedianPnL, "%+.2f", 1)
	printStat("Stdev", snap.StdevPnL, "%.2f", 1)
	printStat("Profit factor", snap.ProfitFactor, "%.2f", 1)
	printStat("Expectancy", snap.Expectancy, "%+.2f", 1)
	if snap.BestDay != nil {
		fmt.Printf("   Best day:      %s (%+.2f)\n", snap.BestDay.Date.Format("2006-01-02"), snap.BestDay.PnL)
	}
	if snap.WorstDay != nil {
		fmt.Printf("   Worst day:     %s (%+.2f)\n", snap.WorstDay.Date.Format("2006-01-02"), snap.WorstDay.PnL)
	}

	edges := result.Edges
	if *top > 0 && len(edges) > *top {
		edges = edges[:*top]
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Printf("🏆 TOP EDGES (%d of %d)\n", len(edges), len(result.Edges))
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("┌────────────────────────────────────────────┬────────┬──────────┬─────────┬───────┐")
	fmt.Println("│ Slice                                      │ Days   │ Win Rate │ Expect. │ Score │")
	fmt.Println("├────────────────────────────────────────────┼────────┼──────────┼─────────┼───────┤")
	for _, e := range edges {
		emoji := "🟢"
		if e.Score < 50 {
			emoji = "🔴"
		}
		fmt.Printf("│ %s %-40s │ %6d │ %7.1f%% │ %+7.1f │ %5.1f │\n",
			emoji, truncate(describeSlice(e), 40),
			e.Sessions, e.ShrunkWinRate*100, expectancyOf(e), e.Score)
	}
	fmt.Println("└────────────────────────────────────────────┴────────┴──────────┴─────────┴───────┘")
}

func printStat(label string, v *float64, format string, scale float64) {
	if v == nil {
		fmt.Printf("   %-13s n/a\n", label+":")
		return
	}
	fmt.Printf("   %-13s "+format+"\n", label+":", *v*scale)
}

func expectancyOf(e edge.Edge) float64 {
	if e.Expectancy == nil {
		return 0
	}
	return *e.Expectancy
}

// describeSlice renders the non-empty dimensions of an edge as a short
// human label.
func describeSlice(e edge.Edge) string {
	if e.IsGlobal() {
		return "ALL SESSIONS"
	}
	var parts []string
	if e.Symbol != nil {
		parts = append(parts, *e.Symbol)
	}
	if e.Kind != nil {
		parts = append(parts, *e.Kind)
	}
	if e.Weekday != nil {
		parts = append(parts, time.Weekday(*e.Weekday).String())
	}
	if e.TimeBucket != nil {
		parts = append(parts, "@"+*e.TimeBucket)
	}
	if e.DTEBucket != nil {
		parts = append(parts, *e.DTEBucket+" DTE")
	}
	if e.PlanRespected != nil {
		if *e.PlanRespected {
			parts = append(parts, "plan kept")
		} else {
			parts = append(parts, "plan broken")
		}
	}
	if e.FOMO != nil && *e.FOMO {
		parts = append(parts, "FOMO")
	}
	if e.Revenge != nil && *e.Revenge {
		parts = append(parts, "revenge")
	}
	return strings.Join(parts, " / ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
