package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wgomg/rater/internal/api"
	"github.com/wgomg/rater/internal/config"
	"github.com/wgomg/rater/internal/llm"
	"github.com/wgomg/rater/internal/rating"
	"github.com/wgomg/rater/internal/semantic"
)

var (
	rateBackend string
	rateUser    string
	rateCorrect string
	rateVerbose bool
)

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Rate one answer from the command line",
	Example: `  rater rate --backend spacy --user "Paris" --correct "Paris"
  rater rate --backend groq --user "Lyon" --correct "Paris"`,
	RunE: runRate,
}

func init() {
	rateCmd.Flags().StringVarP(&rateBackend, "backend", "b", semantic.ProviderName, "scoring backend: spacy, groq or gemini")
	rateCmd.Flags().StringVarP(&rateUser, "user", "u", "", "the user's answer")
	rateCmd.Flags().StringVarP(&rateCorrect, "correct", "c", "", "the correct answer")
	rateCmd.Flags().BoolVarP(&rateVerbose, "verbose", "v", false, "log at the configured level instead of errors only")
}

func runRate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := "error"
	if rateVerbose {
		level = cfg.App.LogLevel
	}
	logger := newLogger(cfg, level)
	defer logger.Close()

	req := rating.Request{UserAnswer: rateUser, CorrectAnswer: rateCorrect}
	if err := rating.Validate(&req, cfg.App.MaxAnswerTokens); err != nil {
		return err
	}

	ctx := cmd.Context()

	var scorer api.Scorer
	switch rateBackend {
	case semantic.ProviderName:
		embedder, err := semantic.NewEmbedder(logger, &cfg.Semantic)
		if err != nil {
			return err
		}
		defer embedder.Close()
		scorer = semantic.NewScorer(embedder, logger)
	case llm.GroqProviderName:
		client, err := llm.NewClient(cfg, logger)
		if err != nil {
			return err
		}
		scorer = llm.NewScorer(client, logger)
	case llm.GeminiProviderName:
		client, err := llm.NewGeminiClient(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		scorer = llm.NewScorer(client, logger)
	default:
		return fmt.Errorf("unknown backend %q", rateBackend)
	}

	score, err := scorer.Rate(ctx, req.UserAnswer, req.CorrectAnswer, "cli")
	if err != nil {
		return err
	}

	out, err := json.Marshal(rating.Response{Rating: score})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
