package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/leadsheets/internal/core"
	"github.com/JonMunkholm/leadsheets/internal/logging"
)

// Response status values used by the mutation endpoints.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// StatusResponse is the body of save and match responses.
type StatusResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Matched map[string]int `json:"matched,omitempty"`
}

// ErrorResponse is the body of read endpoint failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// classifyError maps a service error to a status code and the message
// shown to the client. Persistence failures hide their cause; everything
// else reports the error text as is.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrMissingSheetName):
		return http.StatusBadRequest, core.ErrMissingSheetName.Error()
	case errors.Is(err, core.ErrSheetNotFound), errors.Is(err, core.ErrMatchDisabled):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, core.ErrSaveFailed):
		return http.StatusInternalServerError, core.ErrSaveFailed.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// respondStatusError writes a {status, message} error and logs the full
// error with the request ID.
func respondStatusError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := classifyError(err)
	logRequestError(r, err, code)
	writeJSON(w, code, StatusResponse{Status: statusError, Message: message})
}

// respondError writes an {error} body and logs the full error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := classifyError(err)
	logRequestError(r, err, code)
	writeError(w, code, message)
}

func logRequestError(r *http.Request, err error, code int) {
	logger := logging.FromContext(r.Context())
	attrs := []any{"path", r.URL.Path, "method", r.Method, "status", code, "error", err}
	if code >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
		return
	}
	logger.Warn("request error", attrs...)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeJSON encodes v as JSON with the given status. Non-ASCII and HTML
// characters are written as is. Encoding errors are logged since the
// headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
