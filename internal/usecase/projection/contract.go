package projection

import (
	"context"

	"github.com/kailas-cloud/labeldesk/internal/tsne"
)

// Embedder reduces high-dimensional vectors to 2D coordinates, one per input.
type Embedder interface {
	Embed(ctx context.Context, data [][]float32, cfg tsne.Config) ([][2]float64, error)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, data [][]float32, cfg tsne.Config) ([][2]float64, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, data [][]float32, cfg tsne.Config) ([][2]float64, error) {
	return f(ctx, data, cfg)
}
