//go:build !cgo

package embeddings

import (
	"context"
	"errors"
)

// ErrLocalNotAvailable is returned when the binary was built without
// cgo; the local provider needs the ONNX runtime.
var ErrLocalNotAvailable = errors.New("embeddings: local provider not available (built without cgo, use the openai provider)")

// LocalProvider is a stub for non-cgo builds.
type LocalProvider struct{}

// NewLocalProvider fails: the FastEmbed runtime needs cgo.
func NewLocalProvider(Config) (*LocalProvider, error) {
	return nil, ErrLocalNotAvailable
}

func (p *LocalProvider) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, ErrLocalNotAvailable
}

func (p *LocalProvider) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, ErrLocalNotAvailable
}

func (p *LocalProvider) Dimension() int { return 0 }

func (p *LocalProvider) Close() error { return nil }

var _ Provider = (*LocalProvider)(nil)
