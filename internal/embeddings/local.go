//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// localModelMapping maps friendly model names to fastembed constants.
var localModelMapping = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"BAAI/bge-small-zh-v1.5":                 fastembed.BGESmallZH,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// LocalProvider embeds with FastEmbed ONNX models in-process. No network
// dependency, at the cost of cgo and a one-time model download.
type LocalProvider struct {
	model     *fastembed.FlagEmbedding
	modelName string
	dimension int
	mu        sync.RWMutex
}

// NewLocalProvider creates a FastEmbed-backed provider for cfg.
func NewLocalProvider(cfg Config) (*LocalProvider, error) {
	cfg.applyDefaults()

	model, ok := localModelMapping[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported local model %q (supported: BAAI/bge-small-en-v1.5, BAAI/bge-base-en-v1.5, sentence-transformers/all-MiniLM-L6-v2)", ErrInvalidConfig, cfg.Model)
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(".", "model_cache")
	}

	// No progress bars in server logs.
	showProgress := false
	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cacheDir,
		MaxLength:            512,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing fastembed: %w", err)
	}

	return &LocalProvider{
		model:     flagEmbed,
		modelName: cfg.Model,
		dimension: detectDimension(cfg.Model),
	}, nil
}

// EmbedDocuments generates one vector per input text, with the
// "passage: " prefix BGE models expect for documents.
func (p *LocalProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	vectors, err := p.model.PassageEmbed(texts, 256)
	if err != nil {
		return nil, fmt.Errorf("fastembed passage embed: %w", err)
	}
	return vectors, nil
}

// EmbedQuery generates a vector for a single query, with the "query: "
// prefix BGE models expect.
func (p *LocalProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	vector, err := p.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("fastembed query embed: %w", err)
	}
	return vector, nil
}

// Dimension returns the embedding dimension for the configured model.
func (p *LocalProvider) Dimension() int { return p.dimension }

// Close releases the ONNX runtime handle.
func (p *LocalProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		if err := p.model.Destroy(); err != nil {
			return fmt.Errorf("destroying fastembed model: %w", err)
		}
		p.model = nil
	}
	return nil
}

var _ Provider = (*LocalProvider)(nil)
