package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitmatch-ai/gitmatch/internal/janitor"
	"github.com/gitmatch-ai/gitmatch/internal/model"
	"github.com/gitmatch-ai/gitmatch/internal/service/feed"
	"github.com/gitmatch-ai/gitmatch/internal/service/search"
	"github.com/gitmatch-ai/gitmatch/internal/storage"
)

type stubSearchStore struct {
	stage1 model.Stage1Result
}

func (s *stubSearchStore) SearchStage1(context.Context, storage.Stage1Plan) (model.Stage1Result, error) {
	return s.stage1, nil
}

func (s *stubSearchStore) HydrateSearchPage(_ context.Context, nodeIDs []string) ([]model.SearchResultItem, error) {
	out := make([]model.SearchResultItem, len(nodeIDs))
	for i, id := range nodeIDs {
		out[i] = model.SearchResultItem{NodeID: id, Title: "issue " + id}
	}
	return out, nil
}

type stubFeedStore struct{}

func (stubFeedStore) PersonalizedFeedPage(context.Context, storage.PersonalizedFeedQuery) ([]model.FeedItem, int, error) {
	return []model.FeedItem{{NodeID: "I_p"}}, 1, nil
}

func (stubFeedStore) TrendingFeedPage(context.Context, float64, int, int) ([]model.FeedItem, int, error) {
	return []model.FeedItem{{NodeID: "I_t"}}, 1, nil
}

type stubJanitorStore struct {
	count   int64
	deleted int64
}

func (s *stubJanitorStore) CountIssues(context.Context) (int64, error) {
	return s.count, nil
}

func (s *stubJanitorStore) PruneIssuesBelowPercentile(context.Context, float64) (int64, error) {
	s.count -= s.deleted
	return s.deleted, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stage1 := model.Stage1Result{
		NodeIDs:   []string{"I_1", "I_2"},
		RRFScores: map[string]float64{"I_1": 0.03, "I_2": 0.016},
		Total:     2,
	}
	engine := search.New(&stubSearchStore{stage1: stage1}, nil, nil, logger, search.Options{
		CandidateLimit:   500,
		CorpusDimensions: model.EmbeddingDim,
	})
	ranker := feed.New(stubFeedStore{}, logger, feed.Options{})
	jan := janitor.New(&stubJanitorStore{count: 100, deleted: 20}, nil, logger, janitor.Options{
		Percentile: 0.2, MinRows: 1,
	})

	return New(Config{
		Handlers: HandlersDeps{
			Engine:              engine,
			Ranker:              ranker,
			Janitor:             jan,
			Logger:              logger,
			Version:             "test",
			MaxRequestBodyBytes: 1 << 20,
		},
		Port: 0,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", dataOf(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/search", model.SearchRequest{Query: "panic"})

	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, float64(2), data["total"])
	assert.NotEmpty(t, data["search_id"])
	assert.Len(t, data["results"], 2)
}

func TestSearchRequiresQuery(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/search", model.SearchRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString("{nope"))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedTrendingEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/feed", model.FeedRequest{})

	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, false, data["is_personalized"])
	assert.Equal(t, model.TrendingCTA, data["profile_cta"])
}

func TestFeedPersonalizedEndpoint(t *testing.T) {
	srv := newTestServer(t)
	vec := make([]float32, 8)
	vec[0] = 1
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/feed", model.FeedRequest{CombinedVector: vec})

	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, true, data["is_personalized"])
	assert.Nil(t, data["profile_cta"])
}

func TestAdminPruneEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/admin/prune", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, float64(20), data["deleted_count"])
	assert.Equal(t, float64(80), data["remaining_count"])
}

func TestEvaluateEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/quality/evaluate", model.EvaluateRequest{
		Title:    "worker hangs",
		Body:     "## Description\n```go\nselect {}\n```",
		Language: "Go",
	})

	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.InDelta(t, 0.7, data["q_score"].(float64), 1e-9)
	assert.Equal(t, true, data["passes"])
}

func TestSurvivalEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/v1/quality/survival?q_score=0.8&days_old=0", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.InDelta(t, 0.6364, data["survival_score"].(float64), 1e-3)
}

func TestSurvivalEndpointValidatesInput(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/v1/quality/survival?q_score=abc&days_old=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestDisabledWithoutIngestor(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/ingest/batch", map[string]any{
		"repository": map[string]any{"node_id": "R_1", "full_name": "a/b"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
