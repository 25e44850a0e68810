// Package feed ranks issues for a user: embedding similarity against the
// profile's combined interest vector when one exists, a quality-ordered
// trending page when it does not.
package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gitmatch-ai/gitmatch/internal/model"
	"github.com/gitmatch-ai/gitmatch/internal/service/quality"
	"github.com/gitmatch-ai/gitmatch/internal/storage"
)

// Store is the persistence surface the ranker needs.
type Store interface {
	PersonalizedFeedPage(ctx context.Context, q storage.PersonalizedFeedQuery) ([]model.FeedItem, int, error)
	TrendingFeedPage(ctx context.Context, minQScore float64, limit, offset int) ([]model.FeedItem, int, error)
}

// Options tune the freshness boost on the personalized path.
type Options struct {
	Freshness storage.FreshnessParams
}

// Ranker serves feed pages.
type Ranker struct {
	store  Store
	logger *slog.Logger
	opts   Options
}

// New creates a feed ranker.
func New(store Store, logger *slog.Logger, opts Options) *Ranker {
	return &Ranker{store: store, logger: logger, opts: opts}
}

// GetFeed returns one feed page for the profile. A profile with a combined
// interest vector gets the personalized ranking; anything else falls back
// to trending with a profile-completion call to action.
func (r *Ranker) GetFeed(ctx context.Context, profile model.Profile, page, pageSize int) (*model.FeedPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = model.DefaultPageSize
	}
	if pageSize > model.MaxPageSize {
		pageSize = model.MaxPageSize
	}

	if profile.CombinedVector != nil {
		return r.personalized(ctx, profile, page, pageSize)
	}
	return r.trending(ctx, page, pageSize)
}

func (r *Ranker) personalized(ctx context.Context, profile model.Profile, page, pageSize int) (*model.FeedPage, error) {
	offset := (page - 1) * pageSize

	items, total, err := r.store.PersonalizedFeedPage(ctx, storage.PersonalizedFeedQuery{
		CombinedVector: *profile.CombinedVector,
		MinQScore:      profile.MinHeatThreshold,
		Languages:      profile.PreferredLanguages,
		Limit:          pageSize,
		Offset:         offset,
		Freshness:      r.opts.Freshness,
	})
	if err != nil {
		return nil, fmt.Errorf("feed: personalized page: %w", err)
	}

	// Explanations use only fields already on the item. No extra queries.
	for i := range items {
		items[i].WhyThis = ComputeWhyThis(profile, items[i])
	}

	r.logger.Info("served personalized feed", "returned", len(items), "total", total, "page", page)

	return &model.FeedPage{
		Results:        items,
		Total:          total,
		Page:           page,
		PageSize:       pageSize,
		HasMore:        offset+len(items) < total,
		IsPersonalized: true,
		ProfileCTA:     nil,
	}, nil
}

func (r *Ranker) trending(ctx context.Context, page, pageSize int) (*model.FeedPage, error) {
	offset := (page - 1) * pageSize

	items, total, err := r.store.TrendingFeedPage(ctx, quality.DefaultThreshold, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("feed: trending page: %w", err)
	}

	r.logger.Info("served trending feed", "returned", len(items), "total", total, "page", page)

	cta := model.TrendingCTA
	return &model.FeedPage{
		Results:        items,
		Total:          total,
		Page:           page,
		PageSize:       pageSize,
		HasMore:        offset+len(items) < total,
		IsPersonalized: false,
		ProfileCTA:     &cta,
	}, nil
}
