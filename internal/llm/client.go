package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wgomg/rater/internal/config"
	"github.com/wgomg/rater/internal/utils"
	"github.com/wgomg/rater/internal/utils/httputils"
)

const GroqProviderName = "groq"

// Client talks to an OpenAI-compatible chat completions endpoint (Groq).
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *utils.Logger
	cfg        *config.GroqConfig
}

func NewClient(cfg *config.Config, logger *utils.Logger) (*Client, error) {
	if cfg.Groq.URL == "" || cfg.Groq.Token == "" {
		return nil, fmt.Errorf("GROQ_URL and GROQ_API_KEY are required")
	}

	return &Client{
		baseURL: cfg.Groq.URL,
		token:   cfg.Groq.Token,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.App.HttpTimeoutSeconds) * time.Second,
		},
		limiter: newLimiter(cfg.Groq.RequestsPerMinute),
		logger:  logger,
		cfg:     &cfg.Groq,
	}, nil
}

func newLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

func (c *Client) Name() string { return GroqProviderName }

func (c *Client) Complete(ctx context.Context, system, user, reqID string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	reqBody := ChatRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Model:          c.cfg.Model,
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: ResponseFormat{Type: "text"},
		Stream:         false,
		Temperature:    c.cfg.Temperature,
		TopP:           1,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	c.logger.Debug(&reqID, "Sending LLM request: %s", string(jsonBody))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	c.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if _, err := httputils.LogResponseBody(resp, c.logger, reqID); err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.handleAPIError(resp)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug(&reqID, "LLM usage - prompt_tokens: %d, completion_tokens: %d, total_tokens: %d",
		chatResp.Usage.PromptTokens,
		chatResp.Usage.CompletionTokens,
		chatResp.Usage.TotalTokens)

	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("empty response from LLM")
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	c.logger.Debug(&reqID, "LLM raw response: %s", content)

	return content, nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
}

func (c *Client) handleAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
		Body:       string(body),
	}
}
