package httputils

import (
	"errors"
	"net/http"
)

type HTTPError struct {
	Code    int
	Message string
	Details any
}

func (e *HTTPError) Error() string {
	return e.Message
}

func HandleError(w http.ResponseWriter, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		JSONErrorDetails(w, httpErr.Code, httpErr.Message, httpErr.Details)
	} else {
		JSONError(w, http.StatusInternalServerError, "Internal server error")
	}
}
