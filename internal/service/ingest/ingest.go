// Package ingest scores, embeds, and persists issue batches from the
// scraper. Quality and survival scores are computed here, once, at write
// time; the storage layer only stores them.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/gitmatch-ai/gitmatch/internal/cache"
	"github.com/gitmatch-ai/gitmatch/internal/model"
	"github.com/gitmatch-ai/gitmatch/internal/service/embedding"
	"github.com/gitmatch-ai/gitmatch/internal/service/quality"
	"github.com/gitmatch-ai/gitmatch/internal/service/survival"
)

// embedBatchSize caps texts per embedding API call.
const embedBatchSize = 64

// Store is the persistence surface the ingestor needs.
type Store interface {
	UpsertRepository(ctx context.Context, r model.Repository) error
	UpsertIssues(ctx context.Context, issues []model.Issue) error
}

// IssueInput is one raw issue from the scraper, before scoring.
type IssueInput struct {
	NodeID          string           `json:"node_id"`
	Title           string           `json:"title"`
	BodyText        string           `json:"body_text"`
	IssueNumber     *int             `json:"issue_number,omitempty"`
	GitHubURL       *string          `json:"github_url,omitempty"`
	Labels          []string         `json:"labels,omitempty"`
	State           model.IssueState `json:"state"`
	GitHubCreatedAt time.Time        `json:"github_created_at"`
}

// Stats summarizes one batch.
type Stats struct {
	Stored   int
	Rejected int
	Embedded int
}

// Ingestor writes scored issue batches.
type Ingestor struct {
	store    Store
	embedder embedding.Provider
	cache    *cache.Cache
	logger   *slog.Logger
}

// New creates an ingestor. embedder and cache may be nil.
func New(store Store, embedder embedding.Provider, c *cache.Cache, logger *slog.Logger) *Ingestor {
	return &Ingestor{store: store, embedder: embedder, cache: c, logger: logger}
}

// IngestBatch upserts the repository, gates and scores its issues, embeds
// the survivors, and writes them in one storage transaction. Issues below
// the quality gate are dropped and counted, not stored. Embedding failure
// degrades to storing without vectors; those issues stay reachable through
// lexical retrieval.
func (in *Ingestor) IngestBatch(ctx context.Context, repo model.Repository, inputs []IssueInput) (Stats, error) {
	if err := in.store.UpsertRepository(ctx, repo); err != nil {
		return Stats{}, fmt.Errorf("ingest: upsert repository %s: %w", repo.NodeID, err)
	}

	var stats Stats
	language := ""
	if repo.PrimaryLanguage != nil {
		language = *repo.PrimaryLanguage
	}

	var issues []model.Issue
	for _, input := range inputs {
		comps := quality.ExtractComponents(input.Title, input.BodyText, language)
		qScore := quality.ComputeQScore(comps)
		if !quality.PassesGate(qScore, quality.DefaultThreshold) {
			stats.Rejected++
			continue
		}

		hash := contentHash(input.Title, input.BodyText)
		issues = append(issues, model.Issue{
			NodeID:          input.NodeID,
			RepoID:          repo.NodeID,
			Title:           input.Title,
			BodyText:        input.BodyText,
			IssueNumber:     input.IssueNumber,
			GitHubURL:       input.GitHubURL,
			Labels:          input.Labels,
			State:           input.State,
			HasCode:         comps.HasCode,
			HasHeaders:      comps.HasHeaders,
			TechWeight:      comps.TechWeight,
			QScore:          qScore,
			SurvivalScore:   survival.Score(qScore, survival.DaysSince(input.GitHubCreatedAt)),
			ContentHash:     &hash,
			GitHubCreatedAt: input.GitHubCreatedAt,
		})
	}

	if len(issues) == 0 {
		in.logger.Info("ingest batch had no issues above the gate",
			"repo", repo.FullName, "rejected", stats.Rejected)
		return stats, nil
	}

	stats.Embedded = in.embedIssues(ctx, issues)

	if err := in.store.UpsertIssues(ctx, issues); err != nil {
		return Stats{}, fmt.Errorf("ingest: upsert issues for %s: %w", repo.FullName, err)
	}
	stats.Stored = len(issues)

	// New rows change totals and orderings behind cached responses.
	in.cache.Invalidate(ctx)

	in.logger.Info("ingested issue batch", "repo", repo.FullName,
		"stored", stats.Stored, "rejected", stats.Rejected, "embedded", stats.Embedded)
	return stats, nil
}

// embedIssues fills Embedding on as many issues as the provider allows,
// returning how many got a vector. Never fails the batch.
func (in *Ingestor) embedIssues(ctx context.Context, issues []model.Issue) int {
	if in.embedder == nil {
		return 0
	}

	embedded := 0
	for start := 0; start < len(issues); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(issues) {
			end = len(issues)
		}
		chunk := issues[start:end]

		texts := make([]string, len(chunk))
		for i, iss := range chunk {
			texts[i] = iss.Title + "\n\n" + iss.BodyText
		}

		vecs, err := in.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			in.logger.Warn("embedding batch failed, storing without vectors",
				"from", start, "count", len(chunk), "error", err)
			continue
		}
		for i := range chunk {
			if isZeroVector(vecs[i].Slice()) {
				continue
			}
			v := vecs[i]
			chunk[i].Embedding = &v
			embedded++
		}
	}
	return embedded
}

// Cosine distance against a zero vector is NaN, which would poison
// similarity ordering; a zero embedding must stay out of the corpus so the
// row remains lexical-only.
func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// contentHash fingerprints title+body for change detection across scrapes.
func contentHash(title, body string) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}
