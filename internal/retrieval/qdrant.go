package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/interviewd/internal/embeddings"
)

var qdrantTracer = otel.Tracer("interviewd.retrieval.qdrant")

// maxGRPCMessageSize caps gRPC payloads; corpus batches can carry whole
// reference files.
const maxGRPCMessageSize = 16 * 1024 * 1024

// QdrantStore keeps the corpus in an external qdrant instance over gRPC.
type QdrantStore struct {
	client     *qdrant.Client
	embedder   embeddings.Embedder
	collection string
	vectorSize uint64
	topK       int
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

var _ Store = (*QdrantStore)(nil)

// NewQdrantStore connects to qdrant and verifies the server is healthy.
func NewQdrantStore(cfg Config, embedder embeddings.Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Qdrant.Port <= 0 || cfg.Qdrant.Port > 65535 {
		return nil, fmt.Errorf("%w: invalid qdrant port %d", ErrInvalidConfig, cfg.Qdrant.Port)
	}

	vectorSize := cfg.Qdrant.VectorSize
	if vectorSize == 0 {
		if p, ok := embedder.(embeddings.Provider); ok {
			vectorSize = uint64(p.Dimension())
		}
	}
	if vectorSize == 0 {
		return nil, fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		UseTLS: cfg.Qdrant.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxGRPCMessageSize),
				grpc.MaxCallSendMsgSize(maxGRPCMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	store := &QdrantStore{
		client:     client,
		embedder:   embedder,
		collection: cfg.Qdrant.Collection,
		vectorSize: vectorSize,
		topK:       cfg.TopK,
		timeout:    cfg.Timeout,
		maxRetries: cfg.Qdrant.MaxRetries,
		backoff:    cfg.Qdrant.RetryBackoff,
		logger:     logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant health check: %w", err)
	}

	logger.Info("corpus store ready",
		zap.String("provider", "qdrant"),
		zap.String("host", cfg.Qdrant.Host),
		zap.Int("port", cfg.Qdrant.Port),
		zap.String("collection", cfg.Qdrant.Collection),
		zap.Uint64("vector_size", vectorSize),
	)
	return store, nil
}

// IsTransientError reports whether a gRPC error is worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// retryOperation retries an operation with exponential backoff.
func (s *QdrantStore) retryOperation(ctx context.Context, name string, op func() error) error {
	backoff := s.backoff

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed: %w", name, err)
		}
		if attempt == s.maxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", name, s.maxRetries, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", name, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

// ensureCollection creates the corpus collection if it does not exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	var exists bool
	err := s.retryOperation(ctx, "collection_exists", func() error {
		ok, err := s.client.CollectionExists(ctx, s.collection)
		if err != nil {
			return err
		}
		exists = ok
		return nil
	})
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return s.retryOperation(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.vectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
}

// Index embeds and upserts documents into the corpus collection.
func (s *QdrantStore) Index(ctx context.Context, docs []Document) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Index")
	defer span.End()

	span.SetAttributes(
		attribute.Int("document_count", len(docs)),
		attribute.String("collection", s.collection),
	)

	if len(docs) == 0 {
		return nil
	}

	if err := s.ensureCollection(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("ensuring collection %s: %w", s.collection, err)
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		// qdrant point IDs must be UUIDs or integers; the document ID
		// rides in the payload instead.
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.New().String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: map[string]*qdrant.Value{
				"id":      {Kind: &qdrant.Value_StringValue{StringValue: doc.ID}},
				"topic":   {Kind: &qdrant.Value_StringValue{StringValue: doc.Topic}},
				"source":  {Kind: &qdrant.Value_StringValue{StringValue: doc.Source}},
				"content": {Kind: &qdrant.Value_StringValue{StringValue: doc.Content}},
			},
		}
	}

	err = s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting points to %s: %w", s.collection, err)
	}

	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("indexed corpus documents",
		zap.String("collection", s.collection),
		zap.Int("count", len(docs)),
	)
	return nil
}

// Retrieve returns up to TopK snippets relevant to the topic.
func (s *QdrantStore) Retrieve(ctx context.Context, topic string) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Retrieve")
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

	queryVector, err := s.embedder.EmbedQuery(ctx, topic)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	var results []*qdrant.ScoredPoint
	err = s.retryOperation(ctx, "query", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.collection,
			Query:          qdrant.NewQuery(queryVector...),
			Limit:          qdrant.PtrOf(uint64(s.topK)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			// A missing collection means an unseeded corpus, not a failure.
			if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
				results = nil
				return nil
			}
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.collection, err)
	}

	snippets := make([]string, 0, len(results))
	for _, point := range results {
		if v, ok := point.Payload["content"]; ok {
			if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
				snippets = append(snippets, sv.StringValue)
			}
		}
	}

	span.SetAttributes(attribute.Int("results_count", len(snippets)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("retrieved corpus snippets",
		zap.String("topic", topic),
		zap.Int("count", len(snippets)),
	)
	return snippets, nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
