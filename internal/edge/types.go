// Package edge turns a history of trading sessions into a performance
// snapshot plus a ranked set of dimensional edges: which symbol / weekday /
// time / setup combinations are profitable, and with what statistical
// confidence. It is a stateless pure transform recomputed fresh per call.
package edge

import (
	"time"
)

// Default caps for the anti-explosion safety valves.
const (
	DefaultMaxEdges = 1500
	HeatmapMaxCells = 500
	// MinSliceSessions is the minimum contributing sessions for a
	// non-global slice to survive post-processing.
	MinSliceSessions = 3
	// ProfitFactorCap is the finite sentinel reported when gross loss is
	// zero but gross profit is positive. Never Inf in output.
	ProfitFactorCap = 9999.0
)

// Options controls a BuildSnapshotAndEdges run.
type Options struct {
	AsOf       time.Time  // snapshot timestamp; zero means time.Now()
	RangeStart *time.Time // inclusive; nil means unbounded
	RangeEnd   *time.Time // inclusive; nil means unbounded
	MaxEdges   int        // 0 means DefaultMaxEdges
}

// CurvePoint is one date on the equity or drawdown series.
type CurvePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// HistogramBucket is one adaptive-width PnL bucket.
type HistogramBucket struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int     `json:"count"`
}

// WeekdayBar aggregates session performance for one day of the week
// (0 = Sunday through 6 = Saturday).
type WeekdayBar struct {
	Weekday  int     `json:"weekday"`
	Sessions int     `json:"sessions"`
	Wins     int     `json:"wins"`
	PnL      float64 `json:"pnl"`
	WinRate  float64 `json:"win_rate"`
	AvgPnL   float64 `json:"avg_pnl"`
}

// DayResult is the best or worst single session in a snapshot range.
type DayResult struct {
	Date time.Time `json:"date"`
	PnL  float64   `json:"pnl"`
}

// Snapshot is a point-in-time summary over a session range. Degenerate
// statistics (zero sessions, zero-sample stdev, zero gross loss) are nil
// rather than NaN or Inf so consumers can tell "not computable" from zero.
type Snapshot struct {
	AsOf         time.Time  `json:"as_of"`
	RangeStart   *time.Time `json:"range_start,omitempty"`
	RangeEnd     *time.Time `json:"range_end,omitempty"`
	Sessions     int        `json:"sessions"`
	Wins         int        `json:"wins"`
	Losses       int        `json:"losses"`
	TotalPnL     float64    `json:"total_pnl"`
	MeanPnL      *float64   `json:"mean_pnl,omitempty"`
	MedianPnL    *float64   `json:"median_pnl,omitempty"`
	StdevPnL     *float64   `json:"stdev_pnl,omitempty"` // sample stdev, needs n >= 2
	WinRate      *float64   `json:"win_rate,omitempty"`
	ProfitFactor *float64   `json:"profit_factor,omitempty"`
	Expectancy   *float64   `json:"expectancy,omitempty"`
	BestDay      *DayResult `json:"best_day,omitempty"`
	WorstDay     *DayResult `json:"worst_day,omitempty"`

	EquityCurve   []CurvePoint      `json:"equity_curve"`
	DrawdownCurve []CurvePoint      `json:"drawdown_curve"` // always <= 0
	Histogram     []HistogramBucket `json:"histogram"`
	Weekdays      []WeekdayBar      `json:"weekdays"`
}

// Edge is a performance slice along one controlled combination of
// dimensions. A nil dimension means "all values" for that dimension; the
// slice with every dimension nil is the global edge, always retained.
type Edge struct {
	Symbol        *string `json:"symbol,omitempty"`
	Kind          *string `json:"kind,omitempty"`
	Weekday       *int    `json:"weekday,omitempty"`
	TimeBucket    *string `json:"time_bucket,omitempty"` // 30-minute bucket start, "HH:MM"
	DTEBucket     *string `json:"dte_bucket,omitempty"`
	PlanRespected *bool   `json:"plan_respected,omitempty"`
	FOMO          *bool   `json:"fomo,omitempty"`
	Revenge       *bool   `json:"revenge,omitempty"`

	Sessions      int      `json:"sessions"`
	Wins          int      `json:"wins"`
	Losses        int      `json:"losses"`
	WinRate       float64  `json:"win_rate"`
	ShrunkWinRate float64  `json:"shrunk_win_rate"`
	AvgPnL        float64  `json:"avg_pnl"`
	Expectancy    *float64 `json:"expectancy,omitempty"`
	ProfitFactor  *float64 `json:"profit_factor,omitempty"`
	AvgWin        *float64 `json:"avg_win,omitempty"`
	AvgLoss       *float64 `json:"avg_loss,omitempty"` // reported as a positive magnitude
	Score         float64  `json:"score"`      // 0-100
	Confidence    float64  `json:"confidence"` // 0-1
}

// IsGlobal reports whether the edge is the all-dimensions-nil slice.
func (e *Edge) IsGlobal() bool {
	return e.Symbol == nil && e.Kind == nil && e.Weekday == nil &&
		e.TimeBucket == nil && e.DTEBucket == nil &&
		e.PlanRespected == nil && e.FOMO == nil && e.Revenge == nil
}

// Result pairs the snapshot with its ranked edges.
type Result struct {
	Snapshot Snapshot `json:"snapshot"`
	Edges    []Edge   `json:"edges"`
}
