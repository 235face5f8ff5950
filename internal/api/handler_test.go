package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgomg/rater/internal/config"
	"github.com/wgomg/rater/internal/llm"
	"github.com/wgomg/rater/internal/semantic"
	"github.com/wgomg/rater/internal/utils"
)

type fakeEmbedder struct{}

// Embed maps a handful of words onto fixed axes so similarity is predictable.
func (fakeEmbedder) Embed(_ context.Context, texts []string, _ string) ([]semantic.Embedding, error) {
	axes := map[string]semantic.Embedding{
		"Paris":             {1, 0.2, 0},
		"The capital":       {0.9, 0.3, 0.1},
		"apple":             {0, 1, 0},
		"quantum computing": {0, 0, 1},
	}
	out := make([]semantic.Embedding, len(texts))
	for i, text := range texts {
		out[i] = axes[text]
	}
	return out, nil
}

func (fakeEmbedder) HealthCheck(context.Context) error { return nil }

func (fakeEmbedder) Close() error { return nil }

type stubCompleter struct {
	name  string
	reply string
}

func (s stubCompleter) Name() string { return s.name }

func (s stubCompleter) Complete(context.Context, string, string, string) (string, error) {
	return s.reply, nil
}

func newTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			HttpTimeoutSeconds: 2,
			AllowedOrigins:     []string{"http://localhost"},
			MaxAnswerTokens:    2000,
		},
		Groq: config.GroqConfig{Token: "gsk_test", Model: "llama-3.1-8b-instant"},
	}
}

func newTestRouter(t *testing.T, groq Scorer, gemini Scorer) http.Handler {
	t.Helper()

	logger := utils.NewDiscardLogger()
	cfg := newTestConfig()
	spacy := semantic.NewScorer(fakeEmbedder{}, logger)

	h := NewHandler(logger, spacy, groq, gemini, cfg)
	return NewRouter(h, logger, cfg.App.AllowedOrigins)
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSpacyRate_IdenticalAnswers(t *testing.T) {
	router := newTestRouter(t, llm.NewScorer(stubCompleter{name: "groq", reply: "100"}, utils.NewDiscardLogger()), nil)

	w := postJSON(t, router, "/api/spacy-rate", `{"userAnswer":"Paris","correctAnswer":"Paris"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rating":100}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSpacyRate_UnrelatedAnswersScoreLow(t *testing.T) {
	router := newTestRouter(t, llm.NewScorer(stubCompleter{name: "groq", reply: "0"}, utils.NewDiscardLogger()), nil)

	w := postJSON(t, router, "/api/spacy-rate", `{"userAnswer":"apple","correctAnswer":"quantum computing"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["rating"])
}

func TestRate_RatingWithinBounds(t *testing.T) {
	router := newTestRouter(t, llm.NewScorer(stubCompleter{name: "groq", reply: "Score: 140"}, utils.NewDiscardLogger()), nil)

	pairs := [][2]string{
		{"Paris", "The capital"},
		{"Paris", "apple"},
		{"apple", "quantum computing"},
		{"unknown words", "Paris"},
	}

	for _, endpoint := range []string{"/api/spacy-rate", "/api/groq-rate"} {
		for _, p := range pairs {
			body, _ := json.Marshal(map[string]string{"userAnswer": p[0], "correctAnswer": p[1]})
			w := postJSON(t, router, endpoint, string(body))

			require.Equal(t, http.StatusOK, w.Code, endpoint)
			r := decode(t, w)["rating"].(float64)
			assert.GreaterOrEqual(t, r, 0.0)
			assert.LessOrEqual(t, r, 100.0)
		}
	}
}

func TestRate_MissingFields(t *testing.T) {
	router := newTestRouter(t, llm.NewScorer(stubCompleter{name: "groq", reply: "50"}, utils.NewDiscardLogger()), nil)

	cases := []struct {
		body    string
		details map[string]any
	}{
		{`{"correctAnswer":"Paris"}`, map[string]any{"userAnswer": false, "correctAnswer": true}},
		{`{"userAnswer":"Paris"}`, map[string]any{"userAnswer": true, "correctAnswer": false}},
		{`{"userAnswer":"  ","correctAnswer":""}`, map[string]any{"userAnswer": false, "correctAnswer": false}},
		{`null`, map[string]any{"userAnswer": false, "correctAnswer": false}},
	}

	for _, endpoint := range []string{"/api/spacy-rate", "/api/groq-rate"} {
		for _, tc := range cases {
			w := postJSON(t, router, endpoint, tc.body)

			assert.Equal(t, http.StatusBadRequest, w.Code, endpoint+" "+tc.body)
			body := decode(t, w)
			assert.Equal(t, "Missing required fields", body["error"])
			assert.Equal(t, tc.details, body["details"])
		}
	}
}

func TestRate_InvalidJSON(t *testing.T) {
	router := newTestRouter(t, llm.NewScorer(stubCompleter{name: "groq", reply: "50"}, utils.NewDiscardLogger()), nil)

	w := postJSON(t, router, "/api/groq-rate", `{"userAnswer":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Invalid JSON payload")

	w = postJSON(t, router, "/api/spacy-rate", `{"userAnswer":"a","correctAnswer":"b"} junk`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Invalid JSON payload")
}

func TestRate_WrongContentType(t *testing.T) {
	router := newTestRouter(t, llm.NewScorer(stubCompleter{name: "groq", reply: "50"}, utils.NewDiscardLogger()), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/spacy-rate", strings.NewReader(`{"userAnswer":"a","correctAnswer":"b"}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRate_WrongMethod(t *testing.T) {
	router := newTestRouter(t, llm.NewScorer(stubCompleter{name: "groq", reply: "50"}, utils.NewDiscardLogger()), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/groq-rate", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGroqRate_ProviderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	cfg := newTestConfig()
	cfg.Groq.URL = url
	client, err := llm.NewClient(cfg, utils.NewDiscardLogger())
	require.NoError(t, err)

	router := newTestRouter(t, llm.NewScorer(client, utils.NewDiscardLogger()), nil)

	w := postJSON(t, router, "/api/groq-rate", `{"userAnswer":"Lyon","correctAnswer":"Paris"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to rate the answer"}`, w.Body.String())
}

func TestGroqRate_ProviderReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(llm.ChatResponse{
			Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: "35"}}},
		})
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Groq.URL = server.URL
	client, err := llm.NewClient(cfg, utils.NewDiscardLogger())
	require.NoError(t, err)

	router := newTestRouter(t, llm.NewScorer(client, utils.NewDiscardLogger()), nil)

	w := postJSON(t, router, "/api/groq-rate", `{"userAnswer":"Lyon","correctAnswer":"Paris"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rating":35}`, w.Body.String())
}

func TestGroqRate_UnparseableReply(t *testing.T) {
	router := newTestRouter(t, llm.NewScorer(stubCompleter{name: "groq", reply: "no idea"}, utils.NewDiscardLogger()), nil)

	w := postJSON(t, router, "/api/groq-rate", `{"userAnswer":"Lyon","correctAnswer":"Paris"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to rate the answer", decode(t, w)["error"])
}

func TestGeminiRate_OnlyWhenConfigured(t *testing.T) {
	groq := llm.NewScorer(stubCompleter{name: "groq", reply: "50"}, utils.NewDiscardLogger())
	body := `{"userAnswer":"Lyon","correctAnswer":"Paris"}`

	router := newTestRouter(t, groq, nil)
	w := postJSON(t, router, "/api/gemini-rate", body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	gemini := llm.NewScorer(stubCompleter{name: "gemini", reply: "64"}, utils.NewDiscardLogger())
	router = newTestRouter(t, groq, gemini)
	w = postJSON(t, router, "/api/gemini-rate", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rating":64}`, w.Body.String())
}

func TestHomeHealthAndStatic(t *testing.T) {
	router := newTestRouter(t, llm.NewScorer(stubCompleter{name: "groq", reply: "50"}, utils.NewDiscardLogger()), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["message"], "Welcome")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Answer Rater")
}

func TestRate_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, llm.NewScorer(stubCompleter{name: "groq", reply: "50"}, utils.NewDiscardLogger()), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/spacy-rate", nil)
	req.Header.Set("Origin", "http://localhost")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost", w.Header().Get("Access-Control-Allow-Origin"))
}
