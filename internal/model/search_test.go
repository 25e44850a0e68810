package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchRequestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		page         int
		pageSize     int
		wantPage     int
		wantPageSize int
	}{
		{"defaults applied", 0, 0, 1, DefaultPageSize},
		{"negative page", -3, 10, 1, 10},
		{"page size capped", 1, 500, 1, MaxPageSize},
		{"valid untouched", 2, 25, 2, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := SearchRequest{Query: "q", Page: tt.page, PageSize: tt.pageSize}
			r.Normalize()
			assert.Equal(t, tt.wantPage, r.Page)
			assert.Equal(t, tt.wantPageSize, r.PageSize)
		})
	}
}

func TestSearchRequestOffset(t *testing.T) {
	r := SearchRequest{Page: 3, PageSize: 20}
	assert.Equal(t, 40, r.Offset())
}

func TestFingerprintFilterOrderInsensitive(t *testing.T) {
	a := SearchRequest{
		Query:    "memory leak",
		Filters:  SearchFilters{Languages: []string{"Go", "Rust"}, Labels: []string{"bug"}},
		Page:     1,
		PageSize: 20,
	}
	b := SearchRequest{
		Query:    "memory leak",
		Filters:  SearchFilters{Languages: []string{"Rust", "Go"}, Labels: []string{"bug"}},
		Page:     1,
		PageSize: 20,
	}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintDistinguishesRequests(t *testing.T) {
	base := SearchRequest{Query: "panic", Page: 1, PageSize: 20}

	byQuery := base
	byQuery.Query = "deadlock"
	assert.NotEqual(t, base.Fingerprint(), byQuery.Fingerprint())

	byPage := base
	byPage.Page = 2
	assert.NotEqual(t, base.Fingerprint(), byPage.Fingerprint())

	byFilter := base
	byFilter.Filters.Repos = []string{"golang/go"}
	assert.NotEqual(t, base.Fingerprint(), byFilter.Fingerprint())
}

func TestSearchFiltersIsEmpty(t *testing.T) {
	assert.True(t, SearchFilters{}.IsEmpty())
	assert.False(t, SearchFilters{Labels: []string{"bug"}}.IsEmpty())
}
