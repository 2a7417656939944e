package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"trading-journal/internal/edge"
)

// AnalyticsRecord is a persisted snapshot-plus-edges result.
type AnalyticsRecord struct {
	ID       string        `json:"id"`
	UserID   string        `json:"user_id"`
	Snapshot edge.Snapshot `json:"snapshot"`
	Edges    []edge.Edge   `json:"edges"`
}

// SaveAnalyticsResult persists a computed snapshot and its edges.
func (r *Repository) SaveAnalyticsResult(ctx context.Context, userID string, result *edge.Result) (string, error) {
	snapshotJSON, err := json.Marshal(result.Snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	edgesJSON, err := json.Marshal(result.Edges)
	if err != nil {
		return "", fmt.Errorf("failed to marshal edges: %w", err)
	}

	id := uuid.New().String()
	query := `
		INSERT INTO analytics_results (id, user_id, as_of, range_start, range_end, snapshot, edges)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := r.db.Pool.Exec(ctx, query,
		id, userID, result.Snapshot.AsOf,
		result.Snapshot.RangeStart, result.Snapshot.RangeEnd,
		snapshotJSON, edgesJSON,
	); err != nil {
		return "", fmt.Errorf("failed to save analytics result: %w", err)
	}
	return id, nil
}

// GetLatestAnalyticsResult returns the user's most recent persisted result,
// or nil when none exists.
func (r *Repository) GetLatestAnalyticsResult(ctx context.Context, userID string) (*AnalyticsRecord, error) {
	query := `
		SELECT id, user_id, snapshot, edges
		FROM analytics_results
		WHERE user_id = $1
		ORDER BY as_of DESC
		LIMIT 1`

	var rec AnalyticsRecord
	var snapshotJSON, edgesJSON []byte
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&rec.ID, &rec.UserID, &snapshotJSON, &edgesJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics result: %w", err)
	}

	if err := json.Unmarshal(snapshotJSON, &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if err := json.Unmarshal(edgesJSON, &rec.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}
	return &rec, nil
}

// PruneAnalyticsResults keeps only the newest keep results per user.
func (r *Repository) PruneAnalyticsResults(ctx context.Context, userID string, keep int) error {
	query := `
		DELETE FROM analytics_results
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM analytics_results
			WHERE user_id = $1
			ORDER BY as_of DESC
			LIMIT $2
		)`
	if _, err := r.db.Pool.Exec(ctx, query, userID, keep); err != nil {
		return fmt.Errorf("failed to prune analytics results: %w", err)
	}
	return nil
}
