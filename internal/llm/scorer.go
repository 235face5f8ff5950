package llm

import (
	"context"

	"github.com/wgomg/rater/internal/rating"
	"github.com/wgomg/rater/internal/utils"
)

// Completer sends one system+user prompt pair to a hosted model and returns
// the text of its reply.
type Completer interface {
	Name() string
	Complete(ctx context.Context, system, user, reqID string) (string, error)
}

// Scorer asks a hosted model to judge an answer and parses the number out of
// its reply.
type Scorer struct {
	completer Completer
	logger    *utils.Logger
}

func NewScorer(completer Completer, logger *utils.Logger) *Scorer {
	return &Scorer{
		completer: completer,
		logger:    logger,
	}
}

func (s *Scorer) Name() string { return s.completer.Name() }

func (s *Scorer) Rate(ctx context.Context, userAnswer, correctAnswer, reqID string) (int, error) {
	reply, err := s.completer.Complete(ctx, RatingSystemPrompt, RatingUserPrompt(correctAnswer, userAnswer), reqID)
	if err != nil {
		return 0, &rating.ProviderError{Provider: s.completer.Name(), Err: err}
	}

	score, err := rating.Parse(reply)
	if err != nil {
		return 0, err
	}

	s.logger.Debug(&reqID, "%s rating=%d", s.completer.Name(), score)
	return score, nil
}
