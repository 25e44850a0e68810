// Package model defines the core domain types shared across the engine:
// issues, repositories, search and feed requests and their read models.
package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingDim is the fixed embedding dimensionality across the corpus.
// Query vectors of any other dimension are rejected before use. The
// vector(256) column in migrations/001_initial.sql must stay in step.
const EmbeddingDim = 256

// IssueState enumerates GitHub issue states.
type IssueState string

const (
	IssueOpen   IssueState = "open"
	IssueClosed IssueState = "closed"
)

// Issue is a GitHub issue as persisted by the ingestion pipeline.
// The ranking engine reads issues; it never partially updates them.
// Rows are replaced on re-ingestion (upsert) or removed by the janitor.
type Issue struct {
	NodeID string `json:"node_id"`
	RepoID string `json:"repo_id"`

	Title       string   `json:"title"`
	BodyText    string   `json:"body_text"`
	IssueNumber *int     `json:"issue_number,omitempty"`
	GitHubURL   *string  `json:"github_url,omitempty"`
	Labels      []string `json:"labels"`

	State IssueState `json:"state"`

	// Q-score component signals captured at ingestion.
	HasCode    bool    `json:"has_code"`
	HasHeaders bool    `json:"has_headers"`
	TechWeight float64 `json:"tech_weight"`

	// Derived scores. QScore has no floor (junk-penalized issues go
	// negative); SurvivalScore is always finite and positive.
	QScore        float64 `json:"q_score"`
	SurvivalScore float64 `json:"survival_score"`

	Embedding *pgvector.Vector `json:"-"`

	// Idempotency hash over title+body, set by ingestion.
	ContentHash *string `json:"content_hash,omitempty"`

	GitHubCreatedAt time.Time `json:"github_created_at"`
	IngestedAt      time.Time `json:"ingested_at"`
}

// Repository is the owning repository of an issue. Read-only from the
// engine's perspective.
type Repository struct {
	NodeID            string     `json:"node_id"`
	FullName          string     `json:"full_name"`
	PrimaryLanguage   *string    `json:"primary_language,omitempty"`
	Topics            []string   `json:"topics"`
	StargazerCount    int        `json:"stargazer_count"`
	IssueVelocityWeek int        `json:"issue_velocity_week"`
	LastScrapedAt     *time.Time `json:"last_scraped_at,omitempty"`
}
