package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgomg/rater/internal/config"
	"github.com/wgomg/rater/internal/utils"
)

func newTestConfig(url string) *config.Config {
	return &config.Config{
		App: config.AppConfig{HttpTimeoutSeconds: 5},
		Groq: config.GroqConfig{
			URL:       url,
			Token:     "gsk_test",
			Model:     "llama-3.1-8b-instant",
			MaxTokens: 8,
		},
	}
}

func chatReply(content string) ChatResponse {
	return ChatResponse{
		ID:      "chatcmpl-1",
		Choices: []Choice{{Index: 0, Message: Message{Role: "assistant", Content: content}}},
		Usage:   Usage{PromptTokens: 40, CompletionTokens: 1, TotalTokens: 41},
	}
}

func TestNewClient_RequiresToken(t *testing.T) {
	cfg := newTestConfig("http://localhost")
	cfg.Groq.Token = ""

	_, err := NewClient(cfg, utils.NewDiscardLogger())
	assert.Error(t, err)
}

func TestClient_Complete(t *testing.T) {
	var got ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatReply(" 85 \n"))
	}))
	defer server.Close()

	client, err := NewClient(newTestConfig(server.URL), utils.NewDiscardLogger())
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), "system text", "user text", "req-1")
	require.NoError(t, err)
	assert.Equal(t, "85", reply)

	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, ChatMessage{Role: "system", Content: "system text"}, got.Messages[0])
	assert.Equal(t, ChatMessage{Role: "user", Content: "user text"}, got.Messages[1])
	assert.False(t, got.Stream)
}

func TestClient_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit reached"}}`))
	}))
	defer server.Close()

	client, err := NewClient(newTestConfig(server.URL), utils.NewDiscardLogger())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u", "req-1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "rate limit reached")
}

func TestClient_Complete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatResponse{ID: "chatcmpl-1"})
	}))
	defer server.Close()

	client, err := NewClient(newTestConfig(server.URL), utils.NewDiscardLogger())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u", "req-1")
	assert.EqualError(t, err, "empty response from LLM")
}

func TestClient_Complete_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(newTestConfig(url), utils.NewDiscardLogger())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u", "req-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send request")
}

func TestClient_Complete_RateLimited(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(chatReply("50"))
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	cfg.Groq.RequestsPerMinute = 1

	client, err := NewClient(cfg, utils.NewDiscardLogger())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u", "req-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Complete(ctx, "s", "u", "req-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
	assert.Equal(t, int32(1), calls.Load())
}
