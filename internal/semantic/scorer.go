package semantic

import (
	"context"
	"fmt"

	"github.com/wgomg/rater/internal/rating"
	"github.com/wgomg/rater/internal/utils"
)

const ProviderName = "spacy"

// Scorer rates an answer by the cosine similarity of its embedding to the
// embedding of the correct answer.
type Scorer struct {
	embedder Embedder
	logger   *utils.Logger
}

func NewScorer(embedder Embedder, logger *utils.Logger) *Scorer {
	return &Scorer{
		embedder: embedder,
		logger:   logger,
	}
}

func (s *Scorer) Name() string { return ProviderName }

func (s *Scorer) Rate(ctx context.Context, userAnswer, correctAnswer, reqID string) (int, error) {
	vectors, err := s.embedder.Embed(ctx, []string{userAnswer, correctAnswer}, reqID)
	if err != nil {
		return 0, &rating.ProviderError{Provider: ProviderName, Err: err}
	}
	if len(vectors) != 2 {
		return 0, &rating.ProviderError{
			Provider: ProviderName,
			Err:      fmt.Errorf("expected 2 vectors, got %d", len(vectors)),
		}
	}

	similarity := CosineSimilarity(vectors[0], vectors[1])
	score := rating.FromSimilarity(similarity)

	s.logger.Debug(&reqID, "Cosine similarity=%.4f rating=%d", similarity, score)

	return score, nil
}
