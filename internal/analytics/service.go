// Package analytics wires the journal store to the matching and edge
// engines: it loads a user's sessions, recomputes the snapshot and edges
// fresh per request, caches the serialized result, and persists it for the
// journal UI to read back.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trading-journal/config"
	"trading-journal/internal/cache"
	"trading-journal/internal/database"
	"trading-journal/internal/edge"
	"trading-journal/internal/journal"
	"trading-journal/internal/matching"
)

// ErrTooManySessions is returned when a range exceeds the configured
// per-call session bound. Cost grows with sessions x symbols x dimension
// combinations, so the calling layer enforces an upper bound.
var ErrTooManySessions = errors.New("session range exceeds analytics limit")

// Service computes and caches analytics for journal users.
type Service struct {
	repo    *database.Repository
	cache   *cache.Service
	matcher *matching.Matcher
	cfg     config.AnalyticsConfig
	logger  zerolog.Logger
}

// NewService creates the analytics service.
func NewService(repo *database.Repository, cacheSvc *cache.Service, cfg config.AnalyticsConfig, logger zerolog.Logger) *Service {
	if cfg.MaxEdges <= 0 {
		cfg.MaxEdges = edge.DefaultMaxEdges
	}
	return &Service{
		repo:    repo,
		cache:   cacheSvc,
		matcher: matching.NewMatcher(),
		cfg:     cfg,
		logger:  logger.With().Str("component", "analytics").Logger(),
	}
}

// Range is the requested session window. Zero values fall back to the
// configured default lookback ending today.
type Range struct {
	Start time.Time
	End   time.Time
}

func (s *Service) normalizeRange(r Range) Range {
	if r.End.IsZero() {
		r.End = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if r.Start.IsZero() {
		r.Start = r.End.AddDate(0, 0, -s.cfg.DefaultRangeDays)
	}
	return r
}

func rangeFingerprint(r Range) string {
	return fmt.Sprintf("%s:%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

// BuildResult recomputes the snapshot and edges for a user's range,
// serving from cache when a fresh computation is already stored.
func (s *Service) BuildResult(ctx context.Context, userID string, r Range) (*edge.Result, error) {
	r = s.normalizeRange(r)
	key := cache.SnapshotKey(userID, rangeFingerprint(r))

	if data, err := s.cache.Get(ctx, key); err == nil {
		var cached edge.Result
		if err := json.Unmarshal(data, &cached); err == nil {
			s.logger.Debug().Str("user_id", userID).Str("range", rangeFingerprint(r)).
				Msg("analytics served from cache")
			return &cached, nil
		}
	}

	sessions, err := s.loadSessions(ctx, userID, r)
	if err != nil {
		return nil, err
	}

	start, end := r.Start, r.End
	result := edge.BuildSnapshotAndEdges(sessions, edge.Options{
		AsOf:       time.Now().UTC(),
		RangeStart: &start,
		RangeEnd:   &end,
		MaxEdges:   s.cfg.MaxEdges,
	})

	s.logger.Info().
		Str("user_id", userID).
		Str("range", rangeFingerprint(r)).
		Int("sessions", result.Snapshot.Sessions).
		Int("edges", len(result.Edges)).
		Msg("analytics recomputed")

	if data, err := json.Marshal(&result); err == nil {
		s.cache.Set(ctx, key, data, s.cfg.CacheTTL)
	}

	if _, err := s.repo.SaveAnalyticsResult(ctx, userID, &result); err != nil {
		// Persisting is best-effort; the computed result is still valid.
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to persist analytics result")
	} else if err := s.repo.PruneAnalyticsResults(ctx, userID, 10); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to prune analytics results")
	}

	return &result, nil
}

// Heatmap returns the weekday-by-time-bucket view for a user's range.
func (s *Service) Heatmap(ctx context.Context, userID string, r Range) ([]edge.Edge, error) {
	result, err := s.BuildResult(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	return edge.Heatmap(result.Edges), nil
}

// MatchedTrades reconstructs the closed trades for a user's range.
func (s *Service) MatchedTrades(ctx context.Context, userID string, r Range) ([]matching.MatchedTrade, matching.Diagnostics, error) {
	r = s.normalizeRange(r)
	sessions, err := s.loadSessions(ctx, userID, r)
	if err != nil {
		return nil, matching.Diagnostics{}, err
	}

	trades, diag := s.matcher.MatchTrades(sessions)
	if diag.SkippedLegs > 0 || diag.UnmatchedExits > 0 {
		s.logger.Info().
			Str("user_id", userID).
			Int("skipped_legs", diag.SkippedLegs).
			Int("unmatched_exits", diag.UnmatchedExits).
			Msg("matcher dropped legs")
	}
	return trades, diag, nil
}

// SaveSession stores a session and invalidates the user's cached analytics.
func (s *Service) SaveSession(ctx context.Context, session *journal.Session) error {
	if err := s.repo.SaveSession(ctx, session); err != nil {
		return err
	}
	s.cache.InvalidateUser(ctx, session.UserID)
	return nil
}

// DeleteSession removes a session and invalidates the user's cached
// analytics.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if err := s.repo.DeleteSession(ctx, userID, sessionID); err != nil {
		return err
	}
	s.cache.InvalidateUser(ctx, userID)
	return nil
}

// Sessions returns a user's raw sessions for a range.
func (s *Service) Sessions(ctx context.Context, userID string, r Range) ([]journal.Session, error) {
	r = s.normalizeRange(r)
	return s.loadSessions(ctx, userID, r)
}

func (s *Service) loadSessions(ctx context.Context, userID string, r Range) ([]journal.Session, error) {
	sessions, err := s.repo.GetSessionsByDateRange(ctx, userID, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	if s.cfg.MaxSessions > 0 && len(sessions) > s.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}
	return sessions, nil
}
