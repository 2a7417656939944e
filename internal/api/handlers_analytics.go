package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trading-journal/internal/analytics"
)

// parseRange reads optional start_date / end_date query parameters
// (YYYY-MM-DD). Absent or malformed values fall back to the service's
// default lookback rather than failing the request.
func parseRange(c *gin.Context) analytics.Range {
	var r analytics.Range
	if v := c.Query("start_date"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			r.Start = parsed
		}
	}
	if v := c.Query("end_date"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			r.End = parsed
		}
	}
	return r
}

// handleSnapshot returns the full snapshot plus ranked edges for a range.
// GET /api/analytics/snapshot?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD
func (s *Server) handleSnapshot(c *gin.Context) {
	userID, ok := s.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "user identity required"})
		return
	}

	result, err := s.service.BuildResult(c.Request.Context(), userID, parseRange(c))
	if err != nil {
		s.writeAnalyticsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"snapshot": result.Snapshot,
		"edges":    result.Edges,
	})
}

// handleEdges returns the ranked edges only, with an optional cap.
// GET /api/analytics/edges?limit=N
func (s *Server) handleEdges(c *gin.Context) {
	userID, ok := s.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "user identity required"})
		return
	}

	result, err := s.service.BuildResult(c.Request.Context(), userID, parseRange(c))
	if err != nil {
		s.writeAnalyticsError(c, err)
		return
	}

	edges := result.Edges
	if v := c.Query("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit < len(edges) {
			edges = edges[:limit]
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(edges),
		"edges":   edges,
	})
}

// handleHeatmap returns the weekday-by-time-bucket edge view.
// GET /api/analytics/heatmap
func (s *Server) handleHeatmap(c *gin.Context) {
	userID, ok := s.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "user identity required"})
		return
	}

	cells, err := s.service.Heatmap(c.Request.Context(), userID, parseRange(c))
	if err != nil {
		s.writeAnalyticsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(cells),
		"cells":   cells,
	})
}

// handleTrades returns the reconstructed closed trades for a range along
// with the matcher's drop counters.
// GET /api/analytics/trades
func (s *Server) handleTrades(c *gin.Context) {
	userID, ok := s.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "user identity required"})
		return
	}

	trades, diag, err := s.service.MatchedTrades(c.Request.Context(), userID, parseRange(c))
	if err != nil {
		s.writeAnalyticsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"count":       len(trades),
		"trades":      trades,
		"diagnostics": diag,
	})
}

func (s *Server) writeAnalyticsError(c *gin.Context, err error) {
	if errors.Is(err, analytics.ErrTooManySessions) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "range_too_large",
			"message": "requested range contains too many sessions; narrow the date range",
		})
		return
	}
	s.log.Error("Analytics request failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": "failed to compute analytics",
	})
}
