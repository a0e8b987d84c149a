package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOllamaEmbedModel(t *testing.T) {
	t.Setenv("LITREVIEW_OLLAMA_EMBED_MODEL", "")
	t.Setenv("LITREVIEW_OLLAMA_EMBED_MODEL_LOCAL_V2", "custom-embed")
	assert.Equal(t, "nomic-embed-text", resolveOllamaEmbedModel(""))
	assert.Equal(t, "bge-small-en-v1.5", resolveOllamaEmbedModel("bge"))
	assert.Equal(t, "mxbai-embed-large", resolveOllamaEmbedModel("mxbai-embed-large"))
	assert.Equal(t, "custom-embed", resolveOllamaEmbedModel("local.v2"))
}

func TestMatchDimension(t *testing.T) {
	src := []float32{1, 2, 3}
	assert.Equal(t, []float32{1, 2}, matchDimension(src, 2))
	assert.Equal(t, []float32{1, 2, 3, 0, 0}, matchDimension(src, 5))
	assert.Equal(t, src, matchDimension(src, 0))
}

func TestOllamaEmbedBatchesInputs(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"embeddings":[[1,2,3],[4,5,6]]}`))
	}))
	defer srv.Close()

	o := &OllamaEmbeddingProvider{baseURL: srv.URL, model: "nomic-embed-text", client: srv.Client()}
	vecs, info, err := o.Embed(context.Background(), EmbedRequest{Inputs: []string{"a", "b"}, Dimension: 2})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {4, 5}}, vecs)
	assert.Equal(t, "ollama", info.Name)
	assert.Equal(t, []any{"a", "b"}, got["input"])
}

func TestOllamaEmbedRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"server busy"}`))
	}))
	defer srv.Close()

	o := &OllamaEmbeddingProvider{baseURL: srv.URL, model: "m", client: srv.Client()}
	_, _, err := o.Embed(context.Background(), EmbedRequest{Inputs: []string{"a"}})
	rl, ok := AsRateLimit(err)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, rl.RetryAfter)
}

func TestOllamaEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1]]}`))
	}))
	defer srv.Close()

	o := &OllamaEmbeddingProvider{baseURL: srv.URL, model: "m", client: srv.Client()}
	_, _, err := o.Embed(context.Background(), EmbedRequest{Inputs: []string{"a", "b"}})
	require.Error(t, err)
}
