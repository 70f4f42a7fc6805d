package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, "http://localhost:8080/v1", cfg.BaseURL)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "word2vec"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDetectDimension(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"BAAI/bge-small-en-v1.5", 384},
		{"BAAI/bge-base-en-v1.5", 768},
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"custom-large-v2", 1024},
		{"custom-base-v2", 768},
		{"all-MiniLM-L6-v2-mini", 384},
		{"something-unknown", 384},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, detectDimension(tt.model))
		})
	}
}

// embeddingsHandler fakes the OpenAI /embeddings wire shape, echoing a
// fixed-size vector per input.
func embeddingsHandler(t *testing.T, dim int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Helper()

		var req struct {
			Input any    `json:"input"`
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		count := 1
		if inputs, ok := req.Input.([]any); ok {
			count = len(inputs)
		}

		type datum struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Object string  `json:"object"`
			Data   []datum `json:"data"`
			Model  string  `json:"model"`
		}{Object: "list", Model: req.Model}

		for i := 0; i < count; i++ {
			vec := make([]float32, dim)
			for j := range vec {
				vec[j] = float32(i + 1)
			}
			resp.Data = append(resp.Data, datum{Object: "embedding", Embedding: vec, Index: i})
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestOpenAIProvider_EmbedDocuments(t *testing.T) {
	srv := httptest.NewServer(embeddingsHandler(t, 4))
	defer srv.Close()

	provider, err := NewOpenAIProvider(Config{
		BaseURL: srv.URL,
		Model:   "BAAI/bge-small-en-v1.5",
	})
	require.NoError(t, err)
	defer provider.Close()

	vectors, err := provider.EmbedDocuments(context.Background(), []string{"two pointers", "binary search"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 4)
}

func TestOpenAIProvider_EmbedQuery(t *testing.T) {
	srv := httptest.NewServer(embeddingsHandler(t, 4))
	defer srv.Close()

	provider, err := NewOpenAIProvider(Config{
		BaseURL: srv.URL,
		Model:   "BAAI/bge-small-en-v1.5",
	})
	require.NoError(t, err)
	defer provider.Close()

	vector, err := provider.EmbedQuery(context.Background(), "graph traversal")
	require.NoError(t, err)
	assert.Len(t, vector, 4)
}

func TestOpenAIProvider_EmptyInput(t *testing.T) {
	srv := httptest.NewServer(embeddingsHandler(t, 4))
	defer srv.Close()

	provider, err := NewOpenAIProvider(Config{BaseURL: srv.URL, Model: DefaultModel})
	require.NoError(t, err)
	defer provider.Close()

	_, err = provider.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = provider.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestOpenAIProvider_Dimension(t *testing.T) {
	srv := httptest.NewServer(embeddingsHandler(t, 4))
	defer srv.Close()

	provider, err := NewOpenAIProvider(Config{BaseURL: srv.URL, Model: "text-embedding-3-small"})
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, 1536, provider.Dimension())
}
