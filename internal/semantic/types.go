package semantic

import "context"

type Embedding []float64

// Embedder turns texts into fixed-dimension vectors, one per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string, reqID string) ([]Embedding, error)
	HealthCheck(ctx context.Context) error
	Close() error
}
