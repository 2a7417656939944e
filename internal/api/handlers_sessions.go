package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trading-journal/internal/database"
	"trading-journal/internal/journal"
)

// saveSessionRequest is the session upload payload. The date arrives as
// YYYY-MM-DD; leg payloads reuse the journal types directly.
type saveSessionRequest struct {
	ID            string        `json:"id"`
	Date          string        `json:"date" binding:"required"`
	RecordedNet   float64       `json:"recorded_net"`
	PlanRespected *bool         `json:"plan_respected"`
	Tags          []string      `json:"tags"`
	EmotionTags   []string      `json:"emotion_tags"`
	Entries       []journal.Leg `json:"entries"`
	Exits         []journal.Leg `json:"exits"`
}

// handleSaveSession creates or replaces a session for the acting user.
// POST /api/sessions
func (s *Server) handleSaveSession(c *gin.Context) {
	userID, ok := s.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "user identity required"})
		return
	}

	var req saveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "date must be YYYY-MM-DD"})
		return
	}

	session := &journal.Session{
		ID:            req.ID,
		UserID:        userID,
		Date:          date,
		RecordedNet:   req.RecordedNet,
		PlanRespected: req.PlanRespected,
		Tags:          req.Tags,
		EmotionTags:   req.EmotionTags,
		Entries:       req.Entries,
		Exits:         req.Exits,
	}

	if err := s.service.SaveSession(c.Request.Context(), session); err != nil {
		s.log.Error("Failed to save session", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": session.ID,
	})
}

// handleListSessions returns the acting user's sessions for a range.
// GET /api/sessions?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD
func (s *Server) handleListSessions(c *gin.Context) {
	userID, ok := s.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "user identity required"})
		return
	}

	sessions, err := s.service.Sessions(c.Request.Context(), userID, parseRange(c))
	if err != nil {
		s.writeAnalyticsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// handleDeleteSession removes one session by id.
// DELETE /api/sessions/:id
func (s *Server) handleDeleteSession(c *gin.Context) {
	userID, ok := s.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "user identity required"})
		return
	}

	sessionID := c.Param("id")
	if err := s.service.DeleteSession(c.Request.Context(), userID, sessionID); err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "session not found"})
			return
		}
		s.log.Error("Failed to delete session", "error", err, "user_id", userID, "session_id", sessionID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to delete session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
