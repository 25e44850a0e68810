package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/gitmatch-ai/gitmatch/internal/model"
)

// PersonalizedFeedQuery selects embedding-similarity candidates for one
// profile. MinQScore comes from the profile's heat threshold; Languages is
// optional.
type PersonalizedFeedQuery struct {
	CombinedVector pgvector.Vector
	MinQScore      float64
	Languages      []string
	Limit          int
	Offset         int
	Freshness      FreshnessParams
}

// personalizedWhere renders the candidate predicate against binder b.
func personalizedWhere(b *binder, q PersonalizedFeedQuery) string {
	conds := []string{
		"i.embedding IS NOT NULL",
		"i.state = 'open'",
		fmt.Sprintf("i.q_score >= %s", b.bind(q.MinQScore)),
	}
	if len(q.Languages) > 0 {
		conds = append(conds, fmt.Sprintf("r.primary_language = ANY(%s)", b.bind(q.Languages)))
	}
	return strings.Join(conds, " AND ")
}

// PersonalizedFeedPage ranks open, embedded issues above the profile's heat
// threshold by cosine similarity plus a weighted freshness boost. The total
// comes from a window count in the same query; a separate COUNT runs only
// when a paged request comes back empty, since window counts vanish with
// the rows.
func (db *DB) PersonalizedFeedPage(ctx context.Context, q PersonalizedFeedQuery) ([]model.FeedItem, int, error) {
	b := &binder{}
	vec := b.bind(q.CombinedVector)
	floor := b.bind(q.Freshness.Floor)
	halfLife := b.bind(q.Freshness.HalfLifeDays)
	weight := b.bind(q.Freshness.Weight)
	where := personalizedWhere(b, q)
	limit := b.bind(q.Limit)
	offset := b.bind(q.Offset)

	freshness := fmt.Sprintf(
		`GREATEST(%s, POWER(0.5,
			(EXTRACT(EPOCH FROM (now() - GREATEST(i.ingested_at, i.github_created_at))) / 86400.0)
			/ NULLIF(%s, 0)))`,
		floor, halfLife)

	sql := fmt.Sprintf(`
	SELECT
		i.node_id, i.title, i.body_text, COALESCE(i.labels, '{}'), i.q_score,
		i.github_created_at, r.full_name, r.primary_language, COALESCE(r.topics, '{}'),
		1 - (i.embedding <=> %[1]s) AS similarity_score,
		COUNT(*) OVER() AS total_count
	FROM issues i
	JOIN repositories r ON i.repo_id = r.node_id
	WHERE %[2]s
	ORDER BY ((1 - (i.embedding <=> %[1]s)) + (%[3]s * %[4]s)) DESC, i.q_score DESC, i.node_id ASC
	LIMIT %[5]s OFFSET %[6]s`,
		vec, where, weight, freshness, limit, offset)

	items, total, err := db.scanFeedRows(ctx, sql, b.args, true)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: personalized feed page: %w", err)
	}
	if len(items) == 0 && q.Offset > 0 {
		cb := &binder{}
		total, err = db.countFeedMatches(ctx, personalizedWhere(cb, q), cb.args)
		if err != nil {
			return nil, 0, fmt.Errorf("storage: personalized feed count: %w", err)
		}
	}
	return items, total, nil
}

// TrendingFeedPage ranks open issues at or above the quality gate by
// q_score, newest first within a score. Same count strategy as the
// personalized path.
func (db *DB) TrendingFeedPage(ctx context.Context, minQScore float64, limit, offset int) ([]model.FeedItem, int, error) {
	b := &binder{}
	where := fmt.Sprintf("i.q_score >= %s AND i.state = 'open'", b.bind(minQScore))
	limitPh := b.bind(limit)
	offsetPh := b.bind(offset)

	sql := fmt.Sprintf(`
	SELECT
		i.node_id, i.title, i.body_text, COALESCE(i.labels, '{}'), i.q_score,
		i.github_created_at, r.full_name, r.primary_language, COALESCE(r.topics, '{}'),
		COUNT(*) OVER() AS total_count
	FROM issues i
	JOIN repositories r ON i.repo_id = r.node_id
	WHERE %s
	ORDER BY i.q_score DESC, i.github_created_at DESC
	LIMIT %s OFFSET %s`,
		where, limitPh, offsetPh)

	items, total, err := db.scanFeedRows(ctx, sql, b.args, false)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: trending feed page: %w", err)
	}
	if len(items) == 0 && offset > 0 {
		cb := &binder{}
		cond := fmt.Sprintf("i.q_score >= %s AND i.state = 'open'", cb.bind(minQScore))
		total, err = db.countFeedMatches(ctx, cond, cb.args)
		if err != nil {
			return nil, 0, fmt.Errorf("storage: trending feed count: %w", err)
		}
	}
	return items, total, nil
}

func (db *DB) scanFeedRows(ctx context.Context, sql string, args []any, withSimilarity bool) ([]model.FeedItem, int, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		items []model.FeedItem
		total int
	)
	for rows.Next() {
		var (
			item model.FeedItem
			body string
		)
		dests := []any{
			&item.NodeID, &item.Title, &body, &item.Labels, &item.QScore,
			&item.GitHubCreatedAt, &item.RepoName, &item.PrimaryLanguage, &item.RepoTopics,
		}
		if withSimilarity {
			item.SimilarityScore = new(float64)
			dests = append(dests, item.SimilarityScore)
		}
		dests = append(dests, &total)
		if err := rows.Scan(dests...); err != nil {
			return nil, 0, err
		}
		item.BodyPreview = previewText(body)
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// countFeedMatches is the fallback total for pages beyond the last row,
// where the window count has nothing to ride on.
func (db *DB) countFeedMatches(ctx context.Context, where string, args []any) (int, error) {
	sql := fmt.Sprintf(`
	SELECT COUNT(*)
	FROM issues i
	JOIN repositories r ON i.repo_id = r.node_id
	WHERE %s`, where)

	var total int
	if err := db.pool.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
