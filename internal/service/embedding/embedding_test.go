package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeOpenAI(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]datum, len(req.Input))
		// Serve results out of order to exercise index-based reordering.
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[0] = float32(i + 1)
			data[len(req.Input)-1-i] = datum{Object: "embedding", Embedding: vec, Index: i}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
		})
	}))
}

func TestOpenAIProviderEmbedBatch(t *testing.T) {
	srv := newFakeOpenAI(t, 256)
	defer srv.Close()

	p, err := NewOpenAIProvider("test-key", srv.URL, "text-embedding-3-small", 256)
	require.NoError(t, err)
	assert.Equal(t, 256, p.Dimensions())

	vecs, err := p.EmbedBatch(context.Background(), []string{"first", "second", "third"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	// Input order preserved despite shuffled response order.
	assert.Equal(t, float32(1), vecs[0].Slice()[0])
	assert.Equal(t, float32(2), vecs[1].Slice()[0])
	assert.Equal(t, float32(3), vecs[2].Slice()[0])
}

func TestOpenAIProviderDimensionMismatch(t *testing.T) {
	srv := newFakeOpenAI(t, 8)
	defer srv.Close()

	p, err := NewOpenAIProvider("test-key", srv.URL, "text-embedding-3-small", 256)
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestOpenAIProviderEmptyBatch(t *testing.T) {
	p, err := NewOpenAIProvider("test-key", "", "text-embedding-3-small", 256)
	require.NoError(t, err)

	vecs, err := p.EmbedBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestNewOpenAIProviderRejectsBadDims(t *testing.T) {
	_, err := NewOpenAIProvider("key", "", "model", 0)
	assert.Error(t, err)
}

func TestNoopProvider(t *testing.T) {
	p := NewNoopProvider(256)
	assert.Equal(t, 256, p.Dimensions())

	vec, err := p.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, vec.Slice(), 256)

	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}
