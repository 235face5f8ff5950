package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/wgomg/rater/internal/config"
	"github.com/wgomg/rater/internal/rating"
	"github.com/wgomg/rater/internal/utils"
	"github.com/wgomg/rater/internal/utils/httputils"
)

// Scorer rates a user answer against the correct answer on a 0-100 scale.
type Scorer interface {
	Name() string
	Rate(ctx context.Context, userAnswer, correctAnswer, reqID string) (int, error)
}

type Handler struct {
	logger *utils.Logger
	spacy  Scorer
	groq   Scorer
	gemini Scorer
	cfg    *config.Config
}

// NewHandler wires the scorers. gemini may be nil when that backend is not
// configured.
func NewHandler(
	logger *utils.Logger,
	spacy Scorer,
	groq Scorer,
	gemini Scorer,
	cfg *config.Config,
) *Handler {
	return &Handler{
		logger: logger,
		spacy:  spacy,
		groq:   groq,
		gemini: gemini,
		cfg:    cfg,
	}
}

func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	httputils.JSONResponse(w, http.StatusOK, HomeResponse{Message: "Welcome to the answer rating service"})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputils.JSONResponse(w, http.StatusOK, HealthResponse{Status: "OK"})
}

func (h *Handler) HandleSpacyRate(w http.ResponseWriter, r *http.Request) {
	h.handleRate(w, r, h.spacy)
}

func (h *Handler) HandleGroqRate(w http.ResponseWriter, r *http.Request) {
	h.handleRate(w, r, h.groq)
}

func (h *Handler) HandleGeminiRate(w http.ResponseWriter, r *http.Request) {
	h.handleRate(w, r, h.gemini)
}

func (h *Handler) handleRate(w http.ResponseWriter, r *http.Request, scorer Scorer) {
	reqID := httputils.RequestID(r.Context())

	if _, err := httputils.LogRequestBody(r, h.logger, reqID); err != nil {
		h.logger.Error(&reqID, "Failed to read request body: %v", err)
		httputils.JSONError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req rating.Request
	if err := httputils.DecodeJSON(r, &req); err != nil {
		h.logger.Error(&reqID, "JSON decode error: %v", err)
		httputils.HandleError(w, err)
		return
	}

	if err := rating.Validate(&req, h.cfg.App.MaxAnswerTokens); err != nil {
		h.logger.Info(&reqID, "Rejected %s request: %v", scorer.Name(), err)
		httputils.HandleError(w, toHTTPError(err))
		return
	}

	h.logger.Debug(&reqID, "Rating with %s: userAnswer=%q correctAnswer=%q",
		scorer.Name(), utils.Truncate(req.UserAnswer, 200), utils.Truncate(req.CorrectAnswer, 200))

	score, err := scorer.Rate(r.Context(), req.UserAnswer, req.CorrectAnswer, reqID)
	if err != nil {
		h.logger.Error(&reqID, "Error in %s rate: %v", scorer.Name(), err)
		httputils.HandleError(w, toHTTPError(err))
		return
	}

	h.logger.Info(&reqID, "%s rating: %d", scorer.Name(), score)

	if err := httputils.JSONResponse(w, http.StatusOK, rating.Response{Rating: score}); err != nil {
		h.logger.Error(&reqID, "Error sending response: %v", err)
	}
}

// toHTTPError keeps validation messages and hides provider and parse
// failures behind a generic message.
func toHTTPError(err error) error {
	var vErr *rating.ValidationError
	if errors.As(err, &vErr) {
		return &httputils.HTTPError{
			Code:    http.StatusBadRequest,
			Message: vErr.Message,
			Details: vErr.Details,
		}
	}

	return &httputils.HTTPError{
		Code:    http.StatusInternalServerError,
		Message: "Failed to rate the answer",
	}
}
