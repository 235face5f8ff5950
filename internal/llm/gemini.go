package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wgomg/rater/internal/config"
	"github.com/wgomg/rater/internal/utils"
)

const GeminiProviderName = "gemini"

type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *utils.Logger
}

func NewGeminiClient(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*GeminiClient, error) {
	if cfg.Gemini.Token == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Gemini.Token))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       strings.TrimSpace(cfg.Gemini.Model),
		temperature: float32(cfg.Gemini.Temperature),
		logger:      logger,
	}, nil
}

func (g *GeminiClient) Name() string { return GeminiProviderName }

func (g *GeminiClient) Complete(ctx context.Context, system, user, reqID string) (string, error) {
	m := g.client.GenerativeModel(g.model)
	m.SetTemperature(g.temperature)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	g.logger.Debug(&reqID, "Sending Gemini request: model=%s", g.model)

	resp, err := m.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return "", fmt.Errorf("empty response from Gemini")
	}

	g.logger.Debug(&reqID, "Gemini raw response: %s", text)
	return text, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				if s := strings.TrimSpace(string(t)); s != "" {
					return s
				}
			}
		}
	}
	return ""
}
