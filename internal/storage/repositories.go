package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gitmatch-ai/gitmatch/internal/model"
)

// UpsertRepository inserts or updates a repository by node_id.
func (db *DB) UpsertRepository(ctx context.Context, r model.Repository) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO repositories (node_id, full_name, primary_language, topics,
		 stargazer_count, issue_velocity_week, last_scraped_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (node_id) DO UPDATE SET
		     full_name = EXCLUDED.full_name,
		     primary_language = EXCLUDED.primary_language,
		     topics = EXCLUDED.topics,
		     stargazer_count = EXCLUDED.stargazer_count,
		     issue_velocity_week = EXCLUDED.issue_velocity_week,
		     last_scraped_at = EXCLUDED.last_scraped_at`,
		r.NodeID, r.FullName, r.PrimaryLanguage, r.Topics,
		r.StargazerCount, r.IssueVelocityWeek, r.LastScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert repository: %w", err)
	}
	return nil
}

// GetRepository retrieves a repository by node_id.
func (db *DB) GetRepository(ctx context.Context, nodeID string) (model.Repository, error) {
	var r model.Repository
	err := db.pool.QueryRow(ctx,
		`SELECT node_id, full_name, primary_language, COALESCE(topics, '{}'),
		 stargazer_count, issue_velocity_week, last_scraped_at
		 FROM repositories WHERE node_id = $1`, nodeID,
	).Scan(
		&r.NodeID, &r.FullName, &r.PrimaryLanguage, &r.Topics,
		&r.StargazerCount, &r.IssueVelocityWeek, &r.LastScrapedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Repository{}, ErrNotFound
		}
		return model.Repository{}, fmt.Errorf("storage: get repository: %w", err)
	}
	return r, nil
}
