package semantic

import (
	"context"
	"fmt"
	"time"

	"github.com/wgomg/rater/internal/config"
	"github.com/wgomg/rater/internal/utils"
)

const startupHealthCheckTimeout = 60 * time.Second

// NewEmbedder prepares the Python environment, starts the worker pool and
// verifies that the model produces vectors before returning.
func NewEmbedder(logger *utils.Logger, cfg *config.SemanticConfig) (Embedder, error) {
	embedder := NewPythonEmbedder(logger, cfg)

	if err := embedder.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize python embedder: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupHealthCheckTimeout)
	defer cancel()

	if err := embedder.HealthCheck(ctx); err != nil {
		embedder.Close()
		return nil, fmt.Errorf("embedder failed startup health check: %w", err)
	}

	logger.Info(nil, "Embedding model %s loaded", cfg.Model)
	return embedder, nil
}
