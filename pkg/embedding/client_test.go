package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-qa-go/internal/config"
)

func newFakeAPI(t *testing.T, handler http.HandlerFunc) config.EmbeddingConfig {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return config.EmbeddingConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		Model:      "test-embedder",
		Dimensions: 3,
	}
}

func TestCreateEmbedding(t *testing.T) {
	cfg := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embedder", req.Model)
		assert.Equal(t, []string{"hello"}, req.Input)

		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3]}]}`)
	})

	vec, err := NewClient(cfg).CreateEmbedding(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestCreateEmbeddingDimensionMismatch(t *testing.T) {
	cfg := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2]}]}`)
	})

	_, err := NewClient(cfg).CreateEmbedding(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestCreateEmbeddingEmptyResponse(t *testing.T) {
	cfg := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	})

	_, err := NewClient(cfg).CreateEmbedding(context.Background(), "hello")
	require.Error(t, err)
}

func TestCreateEmbeddingAPIError(t *testing.T) {
	cfg := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := NewClient(cfg).CreateEmbedding(context.Background(), "hello")
	require.Error(t, err)
}
