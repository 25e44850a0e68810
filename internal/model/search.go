package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Pagination bounds shared by search and feed.
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// SearchFilters are multi-select filters applied after rank fusion.
// Semantics: OR within a filter, AND across filters.
type SearchFilters struct {
	Languages []string `json:"languages,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Repos     []string `json:"repos,omitempty"`
}

// IsEmpty reports whether no filter is set.
func (f SearchFilters) IsEmpty() bool {
	return len(f.Languages) == 0 && len(f.Labels) == 0 && len(f.Repos) == 0
}

// canonical returns a deterministic JSON form with each set sorted,
// so logically-equal filters produce the same cache fingerprint.
func (f SearchFilters) canonical() string {
	sorted := func(in []string) []string {
		out := append([]string(nil), in...)
		sort.Strings(out)
		return out
	}
	b, _ := json.Marshal(map[string][]string{
		"languages": sorted(f.Languages),
		"labels":    sorted(f.Labels),
		"repos":     sorted(f.Repos),
	})
	return string(b)
}

// SearchRequest is a hybrid search request with query, filters, and pagination.
type SearchRequest struct {
	Query    string        `json:"query"`
	Filters  SearchFilters `json:"filters"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// Normalize clamps pagination to valid bounds.
func (r *SearchRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
}

// Offset is the zero-based index of the first result on the requested page.
func (r SearchRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// Fingerprint is a SHA-256 hash of the normalized request, used as the
// cache key and the singleflight key for identical in-flight searches.
func (r SearchRequest) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(r.Query))
	h.Write([]byte{'|'})
	h.Write([]byte(r.Filters.canonical()))
	h.Write([]byte{'|'})
	b, _ := json.Marshal([2]int{r.Page, r.PageSize})
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

// SearchResultItem is the read-model projection of a single search hit.
// Never persisted.
type SearchResultItem struct {
	NodeID          string    `json:"node_id"`
	Title           string    `json:"title"`
	BodyPreview     string    `json:"body_preview"`
	GitHubURL       *string   `json:"github_url,omitempty"`
	Labels          []string  `json:"labels"`
	QScore          float64   `json:"q_score"`
	RepoName        string    `json:"repo_name"`
	PrimaryLanguage *string   `json:"primary_language,omitempty"`
	GitHubCreatedAt time.Time `json:"github_created_at"`
	RRFScore        float64   `json:"rrf_score"`
}

// SearchResponse is a paginated search response.
type SearchResponse struct {
	SearchID uuid.UUID          `json:"search_id"`
	Results  []SearchResultItem `json:"results"`
	Total    int                `json:"total"`
	// TotalIsCapped is true when either candidate pool hit the per-path
	// limit, meaning recall (and therefore Total) may be incomplete.
	TotalIsCapped bool          `json:"total_is_capped"`
	Page          int           `json:"page"`
	PageSize      int           `json:"page_size"`
	HasMore       bool          `json:"has_more"`
	Query         string        `json:"query"`
	Filters       SearchFilters `json:"filters"`
}

// SearchContext records which results a search returned and their fusion
// scores, kept around briefly so a later interaction event can be joined
// back to the ranking that produced it.
type SearchContext struct {
	SearchID  uuid.UUID          `json:"search_id"`
	Query     string             `json:"query"`
	NodeIDs   []string           `json:"node_ids"`
	RRFScores map[string]float64 `json:"rrf_scores"`
}

// Stage1Result holds the ordered candidate IDs from Stage 1 fusion.
// Built and discarded within one search call.
type Stage1Result struct {
	NodeIDs   []string
	RRFScores map[string]float64
	Total     int
	IsCapped  bool
}
