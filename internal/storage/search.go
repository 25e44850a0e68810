package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/gitmatch-ai/gitmatch/internal/model"
)

// RRFK is the Reciprocal Rank Fusion constant (standard value from Cormack
// et al. 2009).
const RRFK = 60

// FreshnessParams parameterize the exponential recency boost added to the
// fused score: freshness = max(floor, 0.5^(age_days/half_life)).
type FreshnessParams struct {
	HalfLifeDays float64
	Floor        float64
	Weight       float64
}

// Stage1Plan describes one candidate-retrieval + fusion query. The retrieval
// strategy is fixed when the plan is built: a non-nil QueryVec selects the
// hybrid (vector + lexical) branch, nil selects lexical-only.
type Stage1Plan struct {
	QueryText      string
	QueryVec       *pgvector.Vector
	Filters        model.SearchFilters
	CandidateLimit int
	Freshness      FreshnessParams
}

// Hybrid reports whether the plan includes the vector retrieval path.
func (p Stage1Plan) Hybrid() bool {
	return p.QueryVec != nil
}

// binder accumulates query arguments and hands out their placeholders, so
// every user-supplied value stays a bound parameter.
type binder struct {
	args []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// scoreColumns renders the shared freshness and final-score expressions for
// a fused row alias. Kept in one place so both retrieval branches rank
// identically. Age counts from the later of ingested_at and
// github_created_at so re-ingested issues are not treated as stale.
func scoreColumns(alias, floor, halfLife, weight string) string {
	freshness := fmt.Sprintf(
		`GREATEST(%s, POWER(0.5,
			(EXTRACT(EPOCH FROM (now() - GREATEST(%s.ingested_at, %s.github_created_at))) / 86400.0)
			/ NULLIF(%s, 0)))`,
		floor, alias, alias, halfLife)
	return fmt.Sprintf(`%s AS freshness,
		(%s.rrf_score + (%s * %s)) AS final_score`,
		freshness, alias, weight, freshness)
}

// postFusionFilter renders the WHERE clause applied after fusion. Filters
// are deliberately absent from the candidate CTEs: filtering a 500-item
// pool before fusion would silently shrink it and create recall gaps.
func postFusionFilter(b *binder, f model.SearchFilters) string {
	var conds []string
	if len(f.Languages) > 0 {
		conds = append(conds, fmt.Sprintf("r.primary_language = ANY(%s)", b.bind(f.Languages)))
	}
	if len(f.Labels) > 0 {
		conds = append(conds, fmt.Sprintf("fused.labels && %s", b.bind(f.Labels)))
	}
	if len(f.Repos) > 0 {
		conds = append(conds, fmt.Sprintf("r.full_name = ANY(%s)", b.bind(f.Repos)))
	}
	if len(conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conds, " AND ")
}

// buildStage1SQL renders the Stage-1 query for the plan's strategy.
//
// Shape: per-path candidate CTEs (capped, unfiltered, open issues only),
// FULL OUTER JOIN fusion with rrf = 1/(K+v_rank) + 1/(K+b_rank) where a
// missing side contributes 0, post-fusion filters, freshness-boosted final
// score, deterministic tie-break, and a window count for the total.
func buildStage1SQL(p Stage1Plan) (string, []any) {
	b := &binder{}

	qtext := b.bind(p.QueryText)
	climit := b.bind(p.CandidateLimit)
	floor := b.bind(p.Freshness.Floor)
	halfLife := b.bind(p.Freshness.HalfLifeDays)
	weight := b.bind(p.Freshness.Weight)

	lexicalCTE := fmt.Sprintf(`lexical_results AS (
		SELECT i.node_id, i.labels, i.repo_id, i.q_score, i.github_created_at, i.ingested_at,
		       ROW_NUMBER() OVER (
		           ORDER BY ts_rank(i.search_vector, plainto_tsquery('english', %s)) DESC
		       ) AS b_rank
		FROM issues i
		WHERE i.search_vector @@ plainto_tsquery('english', %s) AND i.state = 'open'
		ORDER BY ts_rank(i.search_vector, plainto_tsquery('english', %s)) DESC
		LIMIT %s
	)`, qtext, qtext, qtext, climit)

	var sql string
	if p.Hybrid() {
		qvec := b.bind(*p.QueryVec)
		filterWhere := postFusionFilter(b, p.Filters)

		sql = fmt.Sprintf(`
		WITH vector_results AS (
			SELECT i.node_id, i.labels, i.repo_id, i.q_score, i.github_created_at, i.ingested_at,
			       ROW_NUMBER() OVER (ORDER BY i.embedding <=> %[1]s) AS v_rank
			FROM issues i
			WHERE i.embedding IS NOT NULL AND i.state = 'open'
			ORDER BY i.embedding <=> %[1]s
			LIMIT %[2]s
		),
		%[3]s,
		vector_meta AS (SELECT COUNT(*) AS n FROM vector_results),
		lexical_meta AS (SELECT COUNT(*) AS n FROM lexical_results),
		fused AS (
			SELECT
				COALESCE(v.node_id, l.node_id) AS node_id,
				COALESCE(v.labels, l.labels) AS labels,
				COALESCE(v.repo_id, l.repo_id) AS repo_id,
				COALESCE(v.q_score, l.q_score) AS q_score,
				COALESCE(v.github_created_at, l.github_created_at) AS github_created_at,
				COALESCE(v.ingested_at, l.ingested_at) AS ingested_at,
				COALESCE(1.0 / (%[4]d + v.v_rank), 0) +
				COALESCE(1.0 / (%[4]d + l.b_rank), 0) AS rrf_score
			FROM vector_results v
			FULL OUTER JOIN lexical_results l ON v.node_id = l.node_id
		),
		filtered AS (
			SELECT fused.node_id, fused.rrf_score, fused.q_score, %[5]s
			FROM fused
			JOIN repositories r ON fused.repo_id = r.node_id
			%[6]s
		)
		SELECT
			node_id, rrf_score,
			COUNT(*) OVER() AS total_count,
			(SELECT n >= %[2]s FROM vector_meta) AS vector_capped,
			(SELECT n >= %[2]s FROM lexical_meta) AS lexical_capped
		FROM filtered
		ORDER BY final_score DESC, q_score DESC, node_id ASC`,
			qvec, climit, lexicalCTE, RRFK,
			scoreColumns("fused", floor, halfLife, weight), filterWhere)
	} else {
		filterWhere := postFusionFilter(b, p.Filters)

		sql = fmt.Sprintf(`
		WITH %[1]s,
		lexical_meta AS (SELECT COUNT(*) AS n FROM lexical_results),
		fused AS (
			SELECT node_id, labels, repo_id, q_score, github_created_at, ingested_at,
			       1.0 / (%[2]d + b_rank) AS rrf_score
			FROM lexical_results
		),
		filtered AS (
			SELECT fused.node_id, fused.rrf_score, fused.q_score, %[3]s
			FROM fused
			JOIN repositories r ON fused.repo_id = r.node_id
			%[4]s
		)
		SELECT
			node_id, rrf_score,
			COUNT(*) OVER() AS total_count,
			FALSE AS vector_capped,
			(SELECT n >= %[5]s FROM lexical_meta) AS lexical_capped
		FROM filtered
		ORDER BY final_score DESC, q_score DESC, node_id ASC`,
			lexicalCTE, RRFK,
			scoreColumns("fused", floor, halfLife, weight), filterWhere, climit)
	}

	return sql, b.args
}

// SearchStage1 runs candidate retrieval and RRF fusion, returning the full
// fused-and-filtered ordering with per-row RRF scores, the window-counted
// total, and whether either candidate pool hit its cap.
func (db *DB) SearchStage1(ctx context.Context, plan Stage1Plan) (model.Stage1Result, error) {
	sql, args := buildStage1SQL(plan)

	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return model.Stage1Result{}, fmt.Errorf("storage: search stage 1: %w", err)
	}
	defer rows.Close()

	res := model.Stage1Result{RRFScores: make(map[string]float64)}
	for rows.Next() {
		var (
			nodeID                      string
			rrfScore                    float64
			total                       int
			vectorCapped, lexicalCapped bool
		)
		if err := rows.Scan(&nodeID, &rrfScore, &total, &vectorCapped, &lexicalCapped); err != nil {
			return model.Stage1Result{}, fmt.Errorf("storage: scan stage 1 row: %w", err)
		}
		res.NodeIDs = append(res.NodeIDs, nodeID)
		res.RRFScores[nodeID] = rrfScore
		res.Total = total
		res.IsCapped = vectorCapped || lexicalCapped
	}
	if err := rows.Err(); err != nil {
		return model.Stage1Result{}, fmt.Errorf("storage: stage 1 rows: %w", err)
	}
	return res, nil
}

// HydrateSearchPage fetches full metadata for the given node IDs,
// re-imposing the Stage-1 order via array_position rather than trusting
// storage default order. Only currently-open issues come back; IDs deleted
// between stages are simply absent. RRF scores are filled in by the caller.
func (db *DB) HydrateSearchPage(ctx context.Context, nodeIDs []string) ([]model.SearchResultItem, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT i.node_id, i.title, i.body_text, i.github_url, COALESCE(i.labels, '{}'),
		        i.q_score, i.github_created_at, r.full_name, r.primary_language
		 FROM issues i
		 JOIN repositories r ON i.repo_id = r.node_id
		 WHERE i.node_id = ANY($1) AND i.state = 'open'
		 ORDER BY array_position($1, i.node_id)`,
		nodeIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: hydrate search page: %w", err)
	}
	defer rows.Close()

	var out []model.SearchResultItem
	for rows.Next() {
		var (
			item model.SearchResultItem
			body string
		)
		if err := rows.Scan(
			&item.NodeID, &item.Title, &body, &item.GitHubURL, &item.Labels,
			&item.QScore, &item.GitHubCreatedAt, &item.RepoName, &item.PrimaryLanguage,
		); err != nil {
			return nil, fmt.Errorf("storage: scan hydrated row: %w", err)
		}
		item.BodyPreview = previewText(body)
		out = append(out, item)
	}
	return out, rows.Err()
}

// previewBodyRunes caps body previews in read models.
const previewBodyRunes = 500

func previewText(s string) string {
	r := []rune(s)
	if len(r) <= previewBodyRunes {
		return s
	}
	return string(r[:previewBodyRunes])
}
