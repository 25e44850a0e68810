package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitmatch-ai/gitmatch/internal/model"
	"github.com/gitmatch-ai/gitmatch/internal/storage"
)

type stubFeedStore struct {
	personalizedQ  *storage.PersonalizedFeedQuery
	trendingMinQ   float64
	trendingLimit  int
	trendingOffset int
	trendingCalled bool
	items          []model.FeedItem
	total          int
	err            error
}

func (s *stubFeedStore) PersonalizedFeedPage(_ context.Context, q storage.PersonalizedFeedQuery) ([]model.FeedItem, int, error) {
	s.personalizedQ = &q
	return s.items, s.total, s.err
}

func (s *stubFeedStore) TrendingFeedPage(_ context.Context, minQScore float64, limit, offset int) ([]model.FeedItem, int, error) {
	s.trendingCalled = true
	s.trendingMinQ = minQScore
	s.trendingLimit = limit
	s.trendingOffset = offset
	return s.items, s.total, s.err
}

func newTestRanker(store Store) *Ranker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, logger, Options{
		Freshness: storage.FreshnessParams{HalfLifeDays: 7, Floor: 0.2, Weight: 0.25},
	})
}

func profileWithVector() model.Profile {
	vec := pgvector.NewVector([]float32{0.1, 0.2, 0.3})
	return model.Profile{
		CombinedVector:     &vec,
		PreferredLanguages: []string{"Go", "Rust"},
		MinHeatThreshold:   0.4,
	}
}

func TestGetFeedPersonalizedWhenVectorPresent(t *testing.T) {
	store := &stubFeedStore{
		items: []model.FeedItem{{NodeID: "I_1"}, {NodeID: "I_2"}},
		total: 2,
	}
	r := newTestRanker(store)

	page, err := r.GetFeed(context.Background(), profileWithVector(), 1, 20)
	require.NoError(t, err)

	assert.True(t, page.IsPersonalized)
	assert.Nil(t, page.ProfileCTA)
	assert.False(t, store.trendingCalled)

	require.NotNil(t, store.personalizedQ)
	assert.Equal(t, 0.4, store.personalizedQ.MinQScore)
	assert.Equal(t, []string{"Go", "Rust"}, store.personalizedQ.Languages)
	assert.Equal(t, 20, store.personalizedQ.Limit)
	assert.Equal(t, 0, store.personalizedQ.Offset)
}

func TestGetFeedTrendingWithoutVector(t *testing.T) {
	store := &stubFeedStore{
		items: []model.FeedItem{{NodeID: "I_1"}},
		total: 1,
	}
	r := newTestRanker(store)

	profile := model.Profile{PreferredLanguages: []string{"Go"}}
	page, err := r.GetFeed(context.Background(), profile, 1, 20)
	require.NoError(t, err)

	assert.False(t, page.IsPersonalized)
	require.NotNil(t, page.ProfileCTA)
	assert.Equal(t, model.TrendingCTA, *page.ProfileCTA)
	assert.True(t, store.trendingCalled)
	assert.Equal(t, 0.6, store.trendingMinQ)
	assert.Nil(t, store.personalizedQ, "preferred languages must not route around the trending path")
}

func TestGetFeedPaginationClamping(t *testing.T) {
	store := &stubFeedStore{}
	r := newTestRanker(store)

	page, err := r.GetFeed(context.Background(), model.Profile{}, 0, 9999)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, model.MaxPageSize, page.PageSize)
	assert.Equal(t, model.MaxPageSize, store.trendingLimit)
	assert.Equal(t, 0, store.trendingOffset)
}

func TestGetFeedHasMore(t *testing.T) {
	store := &stubFeedStore{
		items: []model.FeedItem{{NodeID: "a"}, {NodeID: "b"}},
		total: 50,
	}
	r := newTestRanker(store)

	page, err := r.GetFeed(context.Background(), model.Profile{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, store.trendingOffset)
	assert.True(t, page.HasMore)
}

func TestGetFeedPersonalizedAttachesWhyThis(t *testing.T) {
	lang := "Go"
	store := &stubFeedStore{
		items: []model.FeedItem{{
			NodeID:          "I_1",
			Title:           "goroutine deadlock in worker pool",
			Labels:          []string{"bug"},
			PrimaryLanguage: &lang,
		}},
		total: 1,
	}
	r := newTestRanker(store)

	page, err := r.GetFeed(context.Background(), profileWithVector(), 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	require.NotEmpty(t, page.Results[0].WhyThis)
	assert.Equal(t, "Go", page.Results[0].WhyThis[0].Entity)
}

func TestGetFeedStoreErrorPropagates(t *testing.T) {
	store := &stubFeedStore{err: errors.New("connection reset")}
	r := newTestRanker(store)

	_, err := r.GetFeed(context.Background(), model.Profile{}, 1, 20)
	require.Error(t, err)
}
