package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// TrendingCTA is attached to trending feed pages to invite profile completion.
const TrendingCTA = "These are trending issues. Complete your profile for personalized recommendations."

// Profile carries the interest signals the feed ranker consumes.
// Owned by the out-of-scope profile service; read-only here.
type Profile struct {
	// CombinedVector is the blended interest embedding. Nil means the
	// profile is incomplete and the feed falls back to trending.
	CombinedVector *pgvector.Vector `json:"-"`

	PreferredLanguages []string `json:"preferred_languages,omitempty"`
	MinHeatThreshold   float64  `json:"min_heat_threshold"`

	// Whitelisted entity sources for "why this" explanations.
	GitHubLanguages []string `json:"github_languages,omitempty"`
	PreferredTopics []string `json:"preferred_topics,omitempty"`
	GitHubTopics    []string `json:"github_topics,omitempty"`
	StackAreas      []string `json:"stack_areas,omitempty"`
	ResumeSkills    []string `json:"resume_skills,omitempty"`
}

// WhyThisItem is one recommendation explanation entry: a profile entity
// that matched the issue, with its match score.
type WhyThisItem struct {
	Entity string  `json:"entity"`
	Score  float64 `json:"score"`
}

// FeedItem is the read-model projection of a single feed entry.
// Never persisted.
type FeedItem struct {
	NodeID          string        `json:"node_id"`
	Title           string        `json:"title"`
	BodyPreview     string        `json:"body_preview"`
	Labels          []string      `json:"labels"`
	QScore          float64       `json:"q_score"`
	RepoName        string        `json:"repo_name"`
	PrimaryLanguage *string       `json:"primary_language,omitempty"`
	RepoTopics      []string      `json:"repo_topics"`
	GitHubCreatedAt time.Time     `json:"github_created_at"`
	SimilarityScore *float64      `json:"similarity_score,omitempty"`
	WhyThis         []WhyThisItem `json:"why_this,omitempty"`
}

// FeedPage is a paginated feed response.
type FeedPage struct {
	Results        []FeedItem `json:"results"`
	Total          int        `json:"total"`
	Page           int        `json:"page"`
	PageSize       int        `json:"page_size"`
	HasMore        bool       `json:"has_more"`
	IsPersonalized bool       `json:"is_personalized"`
	ProfileCTA     *string    `json:"profile_cta"`
}

// PruneResult reports the outcome of one janitor run.
type PruneResult struct {
	DeletedCount   int64 `json:"deleted_count"`
	RemainingCount int64 `json:"remaining_count"`
}
