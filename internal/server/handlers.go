package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/gitmatch-ai/gitmatch/internal/janitor"
	"github.com/gitmatch-ai/gitmatch/internal/model"
	"github.com/gitmatch-ai/gitmatch/internal/service/feed"
	"github.com/gitmatch-ai/gitmatch/internal/service/ingest"
	"github.com/gitmatch-ai/gitmatch/internal/service/quality"
	"github.com/gitmatch-ai/gitmatch/internal/service/search"
	"github.com/gitmatch-ai/gitmatch/internal/service/survival"
	"github.com/gitmatch-ai/gitmatch/internal/telemetry"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	engine              *search.Engine
	ranker              *feed.Ranker
	ingestor            *ingest.Ingestor
	janitor             *janitor.Janitor
	metrics             *telemetry.EngineMetrics
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): Ingestor, Janitor, Metrics.
type HandlersDeps struct {
	Engine              *search.Engine
	Ranker              *feed.Ranker
	Ingestor            *ingest.Ingestor
	Janitor             *janitor.Janitor
	Metrics             *telemetry.EngineMetrics
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		engine:              d.Engine,
		ranker:              d.Ranker,
		ingestor:            d.Ingestor,
		janitor:             d.Janitor,
		metrics:             d.Metrics,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
	}
}

// HandleSearch handles POST /v1/search.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req model.SearchRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "query is required")
		return
	}

	resp, err := h.engine.Search(r.Context(), req)
	if err != nil {
		h.logger.Error("search failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "search failed")
		return
	}

	if h.metrics != nil {
		h.metrics.Searches.Add(r.Context(), 1)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleSearchContext handles GET /v1/search/{search_id}/context.
// Returns the cached ranking context for a previous search; entries expire
// with the cache TTL.
func (h *Handlers) HandleSearchContext(w http.ResponseWriter, r *http.Request) {
	searchID := r.PathValue("search_id")
	sc, ok := h.engine.Context(r.Context(), searchID)
	if !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "search context not found or expired")
		return
	}
	writeJSON(w, r, http.StatusOK, sc)
}

// HandleFeed handles POST /v1/feed.
func (h *Handlers) HandleFeed(w http.ResponseWriter, r *http.Request) {
	var req model.FeedRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if len(req.CombinedVector) > 0 {
		vec := pgvector.NewVector(req.CombinedVector)
		req.Profile.CombinedVector = &vec
	}

	page, err := h.ranker.GetFeed(r.Context(), req.Profile, req.Page, req.PageSize)
	if err != nil {
		h.logger.Error("feed failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "feed failed")
		return
	}

	if h.metrics != nil {
		h.metrics.FeedPages.Add(r.Context(), 1)
	}
	writeJSON(w, r, http.StatusOK, page)
}

// HandleIngestBatch handles POST /v1/ingest/batch.
func (h *Handlers) HandleIngestBatch(w http.ResponseWriter, r *http.Request) {
	if h.ingestor == nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "ingestion disabled")
		return
	}

	var req struct {
		Repository model.Repository    `json:"repository"`
		Issues     []ingest.IssueInput `json:"issues"`
	}
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if req.Repository.NodeID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "repository.node_id is required")
		return
	}

	stats, err := h.ingestor.IngestBatch(r.Context(), req.Repository, req.Issues)
	if err != nil {
		h.logger.Error("ingest failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "ingest failed")
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// HandleAdminPrune handles POST /v1/admin/prune.
func (h *Handlers) HandleAdminPrune(w http.ResponseWriter, r *http.Request) {
	if h.janitor == nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "janitor disabled")
		return
	}

	res, err := h.janitor.Run(r.Context())
	if err != nil {
		h.logger.Error("prune failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "prune failed")
		return
	}

	if h.metrics != nil && res.DeletedCount > 0 {
		h.metrics.PrunedIssues.Add(r.Context(), res.DeletedCount)
	}
	writeJSON(w, r, http.StatusOK, res)
}

// HandleEvaluate handles POST /v1/quality/evaluate. Pure computation,
// exposed for the ingestion collaborator.
func (h *Handlers) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req model.EvaluateRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	score, passes := quality.EvaluateIssue(req.Title, req.Body, req.Language)
	writeJSON(w, r, http.StatusOK, model.EvaluateResponse{QScore: score, Passes: passes})
}

// HandleSurvival handles GET /v1/quality/survival?q_score=&days_old=.
func (h *Handlers) HandleSurvival(w http.ResponseWriter, r *http.Request) {
	qScore, err := strconv.ParseFloat(r.URL.Query().Get("q_score"), 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "q_score must be a number")
		return
	}
	daysOld, err := strconv.ParseFloat(r.URL.Query().Get("days_old"), 64)
	if err != nil || daysOld < 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "days_old must be a non-negative number")
		return
	}

	writeJSON(w, r, http.StatusOK, model.SurvivalResponse{
		SurvivalScore: survival.Score(qScore, daysOld),
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}
