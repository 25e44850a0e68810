package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gitmatch-ai/gitmatch/internal/model"
)

// UpsertIssues inserts or replaces a batch of issues by node_id in a single
// transaction. Scores (q_score, survival_score) must be computed by the
// caller before the write; the storage layer never derives them.
func (db *DB) UpsertIssues(ctx context.Context, issues []model.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, iss := range issues {
		if _, err := tx.Exec(ctx,
			`INSERT INTO issues (node_id, repo_id, title, body_text, issue_number,
			 github_url, labels, state, has_code, has_headers, tech_weight,
			 q_score, survival_score, embedding, content_hash,
			 github_created_at, ingested_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now())
			 ON CONFLICT (node_id) DO UPDATE SET
			     repo_id = EXCLUDED.repo_id,
			     title = EXCLUDED.title,
			     body_text = EXCLUDED.body_text,
			     issue_number = EXCLUDED.issue_number,
			     github_url = EXCLUDED.github_url,
			     labels = EXCLUDED.labels,
			     state = EXCLUDED.state,
			     has_code = EXCLUDED.has_code,
			     has_headers = EXCLUDED.has_headers,
			     tech_weight = EXCLUDED.tech_weight,
			     q_score = EXCLUDED.q_score,
			     survival_score = EXCLUDED.survival_score,
			     embedding = EXCLUDED.embedding,
			     content_hash = EXCLUDED.content_hash,
			     ingested_at = now()`,
			iss.NodeID, iss.RepoID, iss.Title, iss.BodyText, iss.IssueNumber,
			iss.GitHubURL, iss.Labels, iss.State, iss.HasCode, iss.HasHeaders,
			iss.TechWeight, iss.QScore, iss.SurvivalScore, iss.Embedding,
			iss.ContentHash, iss.GitHubCreatedAt,
		); err != nil {
			return fmt.Errorf("storage: upsert issue %s: %w", iss.NodeID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit upsert tx: %w", err)
	}
	return nil
}

// GetIssue retrieves an issue by node_id.
func (db *DB) GetIssue(ctx context.Context, nodeID string) (model.Issue, error) {
	var iss model.Issue
	err := db.pool.QueryRow(ctx,
		`SELECT node_id, repo_id, title, body_text, issue_number, github_url,
		 COALESCE(labels, '{}'), state, has_code, has_headers, tech_weight,
		 q_score, survival_score, embedding, content_hash,
		 github_created_at, ingested_at
		 FROM issues WHERE node_id = $1`, nodeID,
	).Scan(
		&iss.NodeID, &iss.RepoID, &iss.Title, &iss.BodyText, &iss.IssueNumber,
		&iss.GitHubURL, &iss.Labels, &iss.State, &iss.HasCode, &iss.HasHeaders,
		&iss.TechWeight, &iss.QScore, &iss.SurvivalScore, &iss.Embedding,
		&iss.ContentHash, &iss.GitHubCreatedAt, &iss.IngestedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Issue{}, ErrNotFound
		}
		return model.Issue{}, fmt.Errorf("storage: get issue: %w", err)
	}
	return iss, nil
}

// CountIssues returns the total number of issues in the corpus.
func (db *DB) CountIssues(ctx context.Context) (int64, error) {
	var n int64
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM issues`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count issues: %w", err)
	}
	return n, nil
}
