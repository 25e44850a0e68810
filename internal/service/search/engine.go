// Package search implements two-stage hybrid retrieval: Stage 1 fuses
// vector and lexical candidate rankings with Reciprocal Rank Fusion, Stage 2
// hydrates the requested page. Embedding and cache failures degrade the
// request rather than failing it; only storage errors propagate.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/singleflight"

	"github.com/gitmatch-ai/gitmatch/internal/cache"
	"github.com/gitmatch-ai/gitmatch/internal/model"
	"github.com/gitmatch-ai/gitmatch/internal/service/embedding"
	"github.com/gitmatch-ai/gitmatch/internal/storage"
)

// Store is the persistence surface the engine needs.
type Store interface {
	SearchStage1(ctx context.Context, plan storage.Stage1Plan) (model.Stage1Result, error)
	HydrateSearchPage(ctx context.Context, nodeIDs []string) ([]model.SearchResultItem, error)
}

// Options tune candidate retrieval and freshness boosting.
type Options struct {
	CandidateLimit int
	Freshness      storage.FreshnessParams
	// CorpusDimensions is the embedding width of the stored corpus. A query
	// vector of any other width cannot be compared and forces the lexical
	// fallback.
	CorpusDimensions int
}

// Engine executes hybrid searches.
type Engine struct {
	store    Store
	embedder embedding.Provider
	cache    *cache.Cache
	logger   *slog.Logger
	opts     Options

	// group collapses concurrent identical requests onto one execution.
	group singleflight.Group
}

// New creates a search engine. embedder may be nil and cache may be a nil
// *cache.Cache; both degrade to lexical-only, uncached operation.
func New(store Store, embedder embedding.Provider, c *cache.Cache, logger *slog.Logger, opts Options) *Engine {
	return &Engine{
		store:    store,
		embedder: embedder,
		cache:    c,
		logger:   logger,
		opts:     opts,
	}
}

// Search runs one hybrid search request end to end.
func (e *Engine) Search(ctx context.Context, req model.SearchRequest) (*model.SearchResponse, error) {
	req.Normalize()
	fingerprint := req.Fingerprint()

	if resp, ok := e.cache.GetSearch(ctx, fingerprint); ok {
		return resp, nil
	}

	v, err, _ := e.group.Do(fingerprint, func() (any, error) {
		return e.search(ctx, req, fingerprint)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.SearchResponse), nil
}

func (e *Engine) search(ctx context.Context, req model.SearchRequest, fingerprint string) (*model.SearchResponse, error) {
	plan := storage.Stage1Plan{
		QueryText:      req.Query,
		QueryVec:       e.queryVector(ctx, req.Query),
		Filters:        req.Filters,
		CandidateLimit: e.opts.CandidateLimit,
		Freshness:      e.opts.Freshness,
	}

	stage1, err := e.store.SearchStage1(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("search: stage 1: %w", err)
	}

	resp := &model.SearchResponse{
		SearchID: uuid.New(),
		Total:    stage1.Total,
		// The window count is only as complete as the candidate pools.
		TotalIsCapped: stage1.IsCapped,
		Page:          req.Page,
		PageSize:      req.PageSize,
		Query:         req.Query,
		Filters:       req.Filters,
	}

	offset := req.Offset()
	if offset >= len(stage1.NodeIDs) {
		// Page lands past the materialized window. Report the total we
		// have instead of re-querying with an unbounded offset.
		resp.HasMore = false
		e.finish(ctx, fingerprint, resp, stage1)
		return resp, nil
	}

	end := offset + req.PageSize
	if end > len(stage1.NodeIDs) {
		end = len(stage1.NodeIDs)
	}
	pageIDs := stage1.NodeIDs[offset:end]

	results, err := e.store.HydrateSearchPage(ctx, pageIDs)
	if err != nil {
		return nil, fmt.Errorf("search: stage 2: %w", err)
	}
	if len(results) < len(pageIDs) {
		e.logger.Warn("partial hydration, rows vanished between stages",
			"requested", len(pageIDs), "got", len(results))
	}
	for i := range results {
		results[i].RRFScore = stage1.RRFScores[results[i].NodeID]
	}

	resp.Results = results
	resp.HasMore = offset+len(pageIDs) < stage1.Total

	e.finish(ctx, fingerprint, resp, stage1)
	return resp, nil
}

// queryVector embeds the query text, returning nil whenever a usable vector
// cannot be produced. Nil selects the lexical-only strategy; this never
// fails the request.
func (e *Engine) queryVector(ctx context.Context, query string) *pgvector.Vector {
	if e.embedder == nil {
		return nil
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed, falling back to lexical-only", "error", err)
		return nil
	}
	slice := vec.Slice()
	if len(slice) != e.opts.CorpusDimensions {
		e.logger.Warn("query embedding dimension mismatch, falling back to lexical-only",
			"got", len(slice), "want", e.opts.CorpusDimensions)
		return nil
	}
	if isZeroVector(slice) {
		e.logger.Warn("query embedding is zero magnitude, falling back to lexical-only")
		return nil
	}
	return &vec
}

// finish caches the response and its ranking context. Best effort.
func (e *Engine) finish(ctx context.Context, fingerprint string, resp *model.SearchResponse, stage1 model.Stage1Result) {
	e.cache.SetSearch(ctx, fingerprint, resp)
	e.cache.SetContext(ctx, resp.SearchID.String(), &model.SearchContext{
		SearchID:  resp.SearchID,
		Query:     resp.Query,
		NodeIDs:   stage1.NodeIDs,
		RRFScores: stage1.RRFScores,
	})
}

// Context returns the cached ranking context for a previous search, for
// joining interaction events back to the ranking that produced them.
func (e *Engine) Context(ctx context.Context, searchID string) (*model.SearchContext, bool) {
	return e.cache.GetContext(ctx, searchID)
}

// Cosine distance against a zero vector is undefined, so a zero embedding
// is as unusable as a missing one.
func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
