package api

import (
	"embed"
	"net/http"

	"github.com/wgomg/rater/internal/utils"
	"github.com/wgomg/rater/internal/utils/httputils"
)

//go:embed static
var staticFiles embed.FS

func RegisterRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /{$}", handler.HandleHome)
	mux.HandleFunc("GET /health", handler.HandleHealth)
	mux.Handle("GET /static/", http.FileServerFS(staticFiles))

	mux.HandleFunc("POST /api/spacy-rate", handler.HandleSpacyRate)
	mux.HandleFunc("POST /api/groq-rate", handler.HandleGroqRate)
	if handler.gemini != nil {
		mux.HandleFunc("POST /api/gemini-rate", handler.HandleGeminiRate)
	}
}

// NewRouter returns the full handler chain: request IDs, request logging
// and CORS around the API routes.
func NewRouter(handler *Handler, logger *utils.Logger, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, handler)

	return httputils.WithRequestID(
		httputils.WithRequestLogging(logger,
			httputils.WithCORS(allowedOrigins, mux),
		),
	)
}

// Endpoints lists the registered routes for the startup log.
func (h *Handler) Endpoints() []string {
	endpoints := []string{
		"GET  /",
		"GET  /health",
		"GET  /static/",
		"POST /api/spacy-rate",
		"POST /api/groq-rate",
	}
	if h.gemini != nil {
		endpoints = append(endpoints, "POST /api/gemini-rate")
	}
	return endpoints
}
