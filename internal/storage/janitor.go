package storage

import (
	"context"
	"fmt"
)

// PruneIssuesBelowPercentile deletes every issue whose survival_score falls
// strictly below the given continuous percentile of the current corpus, in
// one atomic statement so the cutoff and the delete see the same snapshot.
// Rows exactly at the cutoff survive; with all-equal scores nothing is
// deleted. Returns the number of rows removed.
func (db *DB) PruneIssuesBelowPercentile(ctx context.Context, percentile float64) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM issues
		 WHERE survival_score < (
		     SELECT percentile_cont($1) WITHIN GROUP (ORDER BY survival_score)
		     FROM issues
		 )`,
		percentile,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: prune below percentile: %w", err)
	}
	return tag.RowsAffected(), nil
}
