package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/embeddings"
)

var chromemTracer = otel.Tracer("interviewd.retrieval.chromem")

// ChromemStore keeps the corpus in an embedded chromem-go database.
//
// chromem-go is a pure-Go vector database with gob-file persistence, so the
// default deployment needs no external services.
type ChromemStore struct {
	db         *chromem.DB
	embedder   embeddings.Embedder
	collection string
	topK       int
	timeout    time.Duration
	logger     *zap.Logger
}

var _ Store = (*ChromemStore)(nil)

// NewChromemStore opens (or creates) the persistent corpus database.
func NewChromemStore(cfg Config, embedder embeddings.Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Chromem.Path == "" {
		return nil, fmt.Errorf("%w: chromem path is required", ErrInvalidConfig)
	}

	path, err := expandPath(cfg.Chromem.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, cfg.Chromem.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem DB: %w", err)
	}

	logger.Info("corpus store ready",
		zap.String("provider", "chromem"),
		zap.String("path", path),
		zap.String("collection", cfg.Chromem.Collection),
		zap.Int("top_k", cfg.TopK),
	)

	return &ChromemStore{
		db:         db,
		embedder:   embedder,
		collection: cfg.Chromem.Collection,
		topK:       cfg.TopK,
		timeout:    cfg.Timeout,
		logger:     logger,
	}, nil
}

// expandPath expands a leading ~ to the user home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// embeddingFunc adapts the Embedder to chromem's query-embedding hook.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// Index embeds and stores documents in the corpus collection.
func (s *ChromemStore) Index(ctx context.Context, docs []Document) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Index")
	defer span.End()

	span.SetAttributes(attribute.Int("document_count", len(docs)))

	if len(docs) == 0 {
		return nil
	}

	collection, err := s.db.GetOrCreateCollection(s.collection, nil, s.embeddingFunc())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("getting collection %s: %w", s.collection, err)
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	// Embed in one batch; chromem then stores the vectors as-is.
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"topic":  doc.Topic,
				"source": doc.Source,
			},
		}
	}

	if err := collection.AddDocuments(ctx, chromemDocs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents: %w", err)
	}

	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("indexed corpus documents",
		zap.String("collection", s.collection),
		zap.Int("count", len(docs)),
	)
	return nil
}

// Retrieve returns up to TopK snippets relevant to the topic.
//
// An empty or missing corpus yields an empty result, not an error; interview
// flow must not depend on reference material being present.
func (s *ChromemStore) Retrieve(ctx context.Context, topic string) ([]string, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Retrieve")
	defer span.End()

	span.SetAttributes(attribute.String("topic", topic), attribute.Int("top_k", s.topK))

	if topic == "" {
		return nil, fmt.Errorf("%w: topic cannot be empty", ErrInvalidConfig)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	collection := s.db.GetCollection(s.collection, s.embeddingFunc())
	if collection == nil {
		span.SetStatus(codes.Ok, "empty corpus")
		return nil, nil
	}

	// chromem requires nResults <= document count.
	k := s.topK
	if count := collection.Count(); count == 0 {
		span.SetStatus(codes.Ok, "empty corpus")
		return nil, nil
	} else if k > count {
		k = count
	}

	results, err := collection.Query(ctx, topic, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.collection, err)
	}

	snippets := make([]string, len(results))
	for i, r := range results {
		snippets[i] = r.Content
	}

	span.SetAttributes(attribute.Int("results_count", len(snippets)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("retrieved corpus snippets",
		zap.String("topic", topic),
		zap.Int("count", len(snippets)),
	)
	return snippets, nil
}

// Close is a no-op; chromem persists on every write.
func (s *ChromemStore) Close() error {
	return nil
}
