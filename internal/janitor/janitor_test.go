package janitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	counts     []int64
	countCalls int
	countErr   error

	pruneCalls      int
	prunePercentile float64
	deleted         int64
	pruneErr        error
}

func (s *stubStore) CountIssues(context.Context) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	n := s.counts[s.countCalls]
	s.countCalls++
	return n, nil
}

func (s *stubStore) PruneIssuesBelowPercentile(_ context.Context, percentile float64) (int64, error) {
	s.pruneCalls++
	s.prunePercentile = percentile
	return s.deleted, s.pruneErr
}

func newTestJanitor(store Store, opts Options) *Janitor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, nil, logger, opts)
}

func TestRunEmptyCorpus(t *testing.T) {
	store := &stubStore{counts: []int64{0}}
	j := newTestJanitor(store, Options{Percentile: 0.2, MinRows: 1})

	res, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.DeletedCount)
	assert.Zero(t, res.RemainingCount)
	assert.Zero(t, store.pruneCalls, "empty corpus must not issue a delete")
}

func TestRunSkipsSmallCorpus(t *testing.T) {
	store := &stubStore{counts: []int64{500}}
	j := newTestJanitor(store, Options{Percentile: 0.2, MinRows: 10000})

	res, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.DeletedCount)
	assert.Equal(t, int64(500), res.RemainingCount)
	assert.Zero(t, store.pruneCalls)
}

func TestRunPrunes(t *testing.T) {
	store := &stubStore{counts: []int64{100, 80}, deleted: 20}
	j := newTestJanitor(store, Options{Percentile: 0.2, MinRows: 100})

	res, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.DeletedCount)
	assert.Equal(t, int64(80), res.RemainingCount)
	assert.Equal(t, 1, store.pruneCalls)
	assert.Equal(t, 0.2, store.prunePercentile)
}

func TestRunDefaultMinRows(t *testing.T) {
	store := &stubStore{counts: []int64{DefaultMinRows - 1}}
	j := newTestJanitor(store, Options{Percentile: 0.2})

	res, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, store.pruneCalls)
	assert.Equal(t, int64(DefaultMinRows-1), res.RemainingCount)
}

func TestRunPruneErrorPropagates(t *testing.T) {
	store := &stubStore{counts: []int64{100}, pruneErr: errors.New("deadlock detected")}
	j := newTestJanitor(store, Options{Percentile: 0.2, MinRows: 1})

	_, err := j.Run(context.Background())
	require.Error(t, err, "prune failures must reach the orchestrator, not retry silently")
}

func TestRunCountErrorPropagates(t *testing.T) {
	store := &stubStore{countErr: errors.New("connection reset")}
	j := newTestJanitor(store, Options{Percentile: 0.2, MinRows: 1})

	_, err := j.Run(context.Background())
	require.Error(t, err)
}
