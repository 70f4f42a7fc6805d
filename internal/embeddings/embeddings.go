// Package embeddings generates the vectors the retrieval corpus is
// indexed and searched with.
//
// Two providers are supported: "openai" drives any OpenAI-compatible
// embeddings API (the hosted OpenAI service or a local TEI server)
// through langchaingo, and "local" runs FastEmbed ONNX models
// in-process. The local provider needs cgo; binaries built without it
// fail construction with ErrLocalNotAvailable.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("embeddings: empty input")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("embeddings: invalid configuration")
)

// Embedder generates vectors for corpus documents and queries.
type Embedder interface {
	// EmbedDocuments generates one vector per input text.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates a vector for a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider is an Embedder that knows its output dimension and owns
// releasable resources.
type Provider interface {
	Embedder

	// Dimension returns the embedding dimension for the current model.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

// Config selects and tunes the embedding provider.
type Config struct {
	// Provider is "openai" (default) or "local".
	Provider string `koanf:"provider"`

	// Model is the embedding model name. Default BAAI/bge-small-en-v1.5.
	Model string `koanf:"model"`

	// BaseURL points the openai provider at the API. Default
	// http://localhost:8080/v1, a local TEI server.
	BaseURL string `koanf:"base_url"`

	// APIKey authenticates against hosted APIs. Optional for TEI.
	APIKey string `koanf:"api_key"`

	// CacheDir stores downloaded model files for the local provider.
	CacheDir string `koanf:"cache_dir"`
}

// DefaultModel embeds well enough for topic-scoped corpus search and is
// served by both providers.
const DefaultModel = "BAAI/bge-small-en-v1.5"

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080/v1"
	}
}

// New creates the provider for cfg.
func New(cfg Config) (Provider, error) {
	cfg.applyDefaults()

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderLocal:
		return NewLocalProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q (supported: openai, local)", ErrInvalidConfig, cfg.Provider)
	}
}

// knownModelDimensions maps model names to their embedding dimensions.
var knownModelDimensions = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"text-embedding-3-small":                 1536,
	"text-embedding-3-large":                 3072,
	"text-embedding-ada-002":                 1536,
}

// detectDimension returns the embedding dimension for a model name,
// falling back to name heuristics and finally the bge-small dimension.
func detectDimension(model string) int {
	if dim, ok := knownModelDimensions[model]; ok {
		return dim
	}
	switch {
	case strings.Contains(model, "large"):
		return 1024
	case strings.Contains(model, "base"):
		return 768
	case strings.Contains(model, "small"), strings.Contains(model, "mini"):
		return 384
	default:
		return 384
	}
}
