package httputils

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/wgomg/rater/internal/utils"
)

const maxBodyBytes = 1 << 20

func DecodeJSON(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return &HTTPError{
			Code:    http.StatusUnsupportedMediaType,
			Message: "Content-Type must be application/json",
		}
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Invalid JSON payload: " + err.Error(),
		}
	}

	// Only one JSON value per body.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return &HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Invalid JSON payload: unexpected data after JSON object",
		}
	}
	return nil
}

// LogRequestBody reads and restores the request body, logging it at debug
// level when raw body logging is enabled.
func LogRequestBody(r *http.Request, logger *utils.Logger, reqID string) ([]byte, error) {
	if !logger.RawBodyLog || r.Body == nil {
		return nil, nil
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	logger.Debug(&reqID, "Raw request body: %s", string(bodyBytes))

	return bodyBytes, nil
}
