// Package retrieval finds reference material for interview topics.
//
// Coding interviews ground the judgment prompt in corpus snippets relevant
// to the session topic. The corpus lives in a vector store; two backends are
// supported: chromem (embedded, default) and qdrant (external, gRPC). The
// "none" provider disables retrieval entirely.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/embeddings"
)

var (
	// ErrInvalidConfig indicates invalid retrieval configuration.
	ErrInvalidConfig = errors.New("retrieval: invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("retrieval: failed to generate embeddings")
)

// DefaultTopK is the number of snippets returned per topic.
const DefaultTopK = 3

// Document is a unit of reference material in the corpus.
type Document struct {
	// ID uniquely identifies the document in the corpus.
	ID string

	// Topic is the interview topic this document supports.
	Topic string

	// Source names where the document came from, usually a file path.
	Source string

	// Content is the snippet text injected into judgment prompts.
	Content string
}

// Retriever returns reference snippets relevant to an interview topic.
//
// Implementations bound their own latency and may return an empty slice;
// callers treat retrieval as best-effort.
type Retriever interface {
	Retrieve(ctx context.Context, topic string) ([]string, error)
}

// Indexer ingests documents into the corpus.
type Indexer interface {
	Index(ctx context.Context, docs []Document) error
}

// Store is a Retriever that owns its corpus.
type Store interface {
	Retriever
	Indexer
	Close() error
}

// ChromemConfig holds configuration for the embedded chromem backend.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string `koanf:"path"`

	// Collection is the corpus collection name.
	Collection string `koanf:"collection"`

	// Compress enables gzip compression for stored data.
	Compress bool `koanf:"compress"`
}

// QdrantConfig holds configuration for the qdrant gRPC backend.
type QdrantConfig struct {
	// Host is the qdrant server hostname. Default "localhost".
	Host string `koanf:"host"`

	// Port is the qdrant gRPC port. Default 6334 (not the 6333 REST port).
	Port int `koanf:"port"`

	// Collection is the corpus collection name.
	Collection string `koanf:"collection"`

	// VectorSize is the embedding dimension. Must match the embedder;
	// defaults from the provider's model when zero.
	VectorSize uint64 `koanf:"vector_size"`

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool `koanf:"use_tls"`

	// MaxRetries bounds retry attempts for transient failures. Default 3.
	MaxRetries int `koanf:"max_retries"`

	// RetryBackoff is the initial backoff, doubled per retry. Default 1s.
	RetryBackoff time.Duration `koanf:"retry_backoff"`
}

// Supported providers.
const (
	ProviderChromem = "chromem"
	ProviderQdrant  = "qdrant"
	ProviderNone    = "none"
)

// Config holds retrieval configuration.
type Config struct {
	// Provider selects the backend: "chromem" (default), "qdrant", "none".
	Provider string `koanf:"provider"`

	// TopK is the number of snippets returned per topic. Default 3.
	TopK int `koanf:"top_k"`

	// Timeout bounds a single Retrieve call. Default 10s.
	Timeout time.Duration `koanf:"timeout"`

	// CorpusDir seeds the store from topic-tagged markdown files at startup.
	CorpusDir string `koanf:"corpus_dir"`

	Chromem ChromemConfig `koanf:"chromem"`
	Qdrant  QdrantConfig  `koanf:"qdrant"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.TopK == 0 {
		c.TopK = DefaultTopK
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Chromem.Collection == "" {
		c.Chromem.Collection = "interview_corpus"
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "interview_corpus"
	}
	if c.Qdrant.MaxRetries == 0 {
		c.Qdrant.MaxRetries = 3
	}
	if c.Qdrant.RetryBackoff == 0 {
		c.Qdrant.RetryBackoff = time.Second
	}
}

// New creates a Store based on the configuration.
//
// The "none" provider returns a no-op store so approach-only deployments can
// run without any vector database.
func New(cfg Config, embedder embeddings.Embedder, logger *zap.Logger) (Store, error) {
	cfg.ApplyDefaults()

	switch cfg.Provider {
	case ProviderChromem, "":
		return NewChromemStore(cfg, embedder, logger)
	case ProviderQdrant:
		return NewQdrantStore(cfg, embedder, logger)
	case ProviderNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q (supported: chromem, qdrant, none)", ErrInvalidConfig, cfg.Provider)
	}
}

// NopStore is a Store that holds nothing and finds nothing.
type NopStore struct{}

var _ Store = NopStore{}

// Retrieve returns no snippets.
func (NopStore) Retrieve(context.Context, string) ([]string, error) { return nil, nil }

// Index drops the documents.
func (NopStore) Index(context.Context, []Document) error { return nil }

// Close is a no-op.
func (NopStore) Close() error { return nil }
