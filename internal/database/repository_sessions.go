package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trading-journal/internal/journal"
)

// ErrSessionNotFound is returned when a session id does not exist for the
// given user.
var ErrSessionNotFound = errors.New("session not found")

// SaveSession upserts a session by (user, date) and replaces its legs.
func (r *Repository) SaveSession(ctx context.Context, s *journal.Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO sessions (id, user_id, session_date, recorded_net, plan_respected, tags, emotion_tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, session_date) DO UPDATE SET
			recorded_net = EXCLUDED.recorded_net,
			plan_respected = EXCLUDED.plan_respected,
			tags = EXCLUDED.tags,
			emotion_tags = EXCLUDED.emotion_tags,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id`

	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	emotions := s.EmotionTags
	if emotions == nil {
		emotions = []string{}
	}

	if err := tx.QueryRow(ctx, query,
		s.ID, s.UserID, s.Date, s.RecordedNet, s.PlanRespected, tags, emotions,
	).Scan(&s.ID); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	// Replace the session's legs wholesale; legs have no identity outside
	// their session.
	if _, err := tx.Exec(ctx, `DELETE FROM legs WHERE session_id = $1`, s.ID); err != nil {
		return fmt.Errorf("failed to clear session legs: %w", err)
	}

	insertLeg := `
		INSERT INTO legs (id, session_id, leg_tag, symbol, kind, side, orientation, price, quantity, clock_time, dte, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	position := 0
	for _, group := range [][]journal.Leg{s.Entries, s.Exits} {
		for i := range group {
			leg := &group[i]
			if leg.ID == "" {
				leg.ID = uuid.New().String()
			}
			var orientation *string
			if leg.Orientation != "" {
				o := string(leg.Orientation)
				orientation = &o
			}
			var clockTime *string
			if leg.ClockTime != "" {
				clockTime = &leg.ClockTime
			}
			if _, err := tx.Exec(ctx, insertLeg,
				leg.ID, s.ID, string(leg.Tag), leg.Symbol, string(leg.Kind), string(leg.Side),
				orientation, leg.Price, leg.Quantity, clockTime, leg.DTE, position,
			); err != nil {
				return fmt.Errorf("failed to save leg: %w", err)
			}
			position++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// GetSessionsByDateRange returns a user's sessions with their legs, date
// ascending, legs in insertion order.
func (r *Repository) GetSessionsByDateRange(ctx context.Context, userID string, start, end time.Time) ([]journal.Session, error) {
	query := `
		SELECT id, user_id, session_date, recorded_net, plan_respected, tags, emotion_tags, created_at, updated_at
		FROM sessions
		WHERE user_id = $1 AND session_date >= $2 AND session_date <= $3
		ORDER BY session_date ASC`

	rows, err := r.db.Pool.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []journal.Session
	index := make(map[string]int)
	for rows.Next() {
		var s journal.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Date, &s.RecordedNet, &s.PlanRespected,
			&s.Tags, &s.EmotionTags, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		index[s.ID] = len(sessions)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	legQuery := `
		SELECT l.id, l.session_id, l.leg_tag, l.symbol, l.kind, l.side,
		       COALESCE(l.orientation, ''), l.price, l.quantity, COALESCE(l.clock_time, ''), l.dte
		FROM legs l
		JOIN sessions s ON s.id = l.session_id
		WHERE s.user_id = $1 AND s.session_date >= $2 AND s.session_date <= $3
		ORDER BY l.session_id, l.position ASC`

	legRows, err := r.db.Pool.Query(ctx, legQuery, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query legs: %w", err)
	}
	defer legRows.Close()

	for legRows.Next() {
		var leg journal.Leg
		var sessionID, tag, kind, side, orientation string
		if err := legRows.Scan(&leg.ID, &sessionID, &tag, &leg.Symbol, &kind, &side,
			&orientation, &leg.Price, &leg.Quantity, &leg.ClockTime, &leg.DTE); err != nil {
			return nil, fmt.Errorf("failed to scan leg: %w", err)
		}
		leg.Tag = journal.LegTag(tag)
		leg.Kind = journal.InstrumentKind(kind)
		leg.Side = journal.Side(side)
		leg.Orientation = journal.Orientation(orientation)

		i, ok := index[sessionID]
		if !ok {
			continue
		}
		if leg.Tag == journal.TagExit {
			sessions[i].Exits = append(sessions[i].Exits, leg)
		} else {
			sessions[i].Entries = append(sessions[i].Entries, leg)
		}
	}
	if err := legRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate legs: %w", err)
	}

	return sessions, nil
}

// DeleteSession removes a session and its legs.
func (r *Repository) DeleteSession(ctx context.Context, userID, sessionID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return nil
}
