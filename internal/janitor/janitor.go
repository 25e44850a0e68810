// Package janitor evicts the weakest tail of the issue corpus by survival
// score, keeping storage bounded as ingestion runs.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gitmatch-ai/gitmatch/internal/cache"
	"github.com/gitmatch-ai/gitmatch/internal/model"
)

// DefaultMinRows is the corpus size below which pruning is skipped; on a
// small corpus a percentile cut removes rows that are merely new, not bad.
const DefaultMinRows = 10000

// Store is the persistence surface the janitor needs.
type Store interface {
	CountIssues(ctx context.Context) (int64, error)
	PruneIssuesBelowPercentile(ctx context.Context, percentile float64) (int64, error)
}

// Options tune one janitor.
type Options struct {
	// Percentile is the continuous survival-score percentile below which
	// rows are deleted. Must be in (0, 1).
	Percentile float64
	// MinRows guards small corpora; zero means DefaultMinRows.
	MinRows int64
}

// Janitor runs percentile-based eviction.
type Janitor struct {
	store  Store
	cache  *cache.Cache
	logger *slog.Logger
	opts   Options
}

// New creates a janitor. cache may be nil.
func New(store Store, c *cache.Cache, logger *slog.Logger, opts Options) *Janitor {
	if opts.MinRows <= 0 {
		opts.MinRows = DefaultMinRows
	}
	return &Janitor{store: store, cache: c, logger: logger, opts: opts}
}

// Run executes one pruning pass. An empty corpus returns {0, 0} without
// issuing a delete; a corpus under MinRows is left untouched. Errors
// propagate to the caller: a prune that ran against stale state must not
// be retried blindly, since running it twice could over-delete.
func (j *Janitor) Run(ctx context.Context) (model.PruneResult, error) {
	total, err := j.store.CountIssues(ctx)
	if err != nil {
		return model.PruneResult{}, fmt.Errorf("janitor: count issues: %w", err)
	}
	if total == 0 {
		return model.PruneResult{}, nil
	}
	if total < j.opts.MinRows {
		j.logger.Info("corpus below pruning floor, skipping",
			"rows", total, "min_rows", j.opts.MinRows)
		return model.PruneResult{RemainingCount: total}, nil
	}

	deleted, err := j.store.PruneIssuesBelowPercentile(ctx, j.opts.Percentile)
	if err != nil {
		return model.PruneResult{}, fmt.Errorf("janitor: prune: %w", err)
	}

	remaining, err := j.store.CountIssues(ctx)
	if err != nil {
		return model.PruneResult{}, fmt.Errorf("janitor: recount issues: %w", err)
	}

	if deleted > 0 {
		// Cached search totals and orderings reference rows that are gone.
		j.cache.Invalidate(ctx)
	}

	j.logger.Info("pruned issue corpus",
		"deleted", deleted, "remaining", remaining, "percentile", j.opts.Percentile)

	return model.PruneResult{DeletedCount: deleted, RemainingCount: remaining}, nil
}

// Start runs pruning on a fixed interval until ctx is canceled. Failures
// are logged and the loop continues; the next tick sees fresh state.
func (j *Janitor) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("janitor loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor loop stopped")
			return
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				j.logger.Error("janitor run failed", "error", err)
			}
		}
	}
}
