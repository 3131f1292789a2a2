// Package httputil provides JSON request and response helpers shared by the
// HTTP handlers and middleware.
package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/thriftline/marketplace/internal/errors"
	"github.com/thriftline/marketplace/pkg/logger"
)

// TraceIDHeader carries the per-request trace id.
const TraceIDHeader = "X-Trace-ID"

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Message string            `json:"message"`
	Errors  []apperrors.Issue `json:"errors,omitempty"`
}

// WriteJSON writes data with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError renders err. Errors that are not a ServiceError become a generic
// 500 and are logged with the request's trace id; their detail never reaches
// the client.
func WriteError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	se := apperrors.GetServiceError(err)
	if se == nil {
		se = apperrors.Internal("Internal Server Error", err)
	}

	if se.HTTPStatus >= http.StatusInternalServerError && log != nil {
		entry := log.WithError(err).
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("code", string(se.Code))
		if traceID := w.Header().Get(TraceIDHeader); traceID != "" {
			entry = entry.WithField("trace_id", traceID)
		}
		entry.Error("request failed")
	}

	WriteJSON(w, se.HTTPStatus, ErrorBody{Message: se.Message, Errors: se.Issues})
}

// Unauthorized writes a 401 with the default message.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, nil, apperrors.Unauthorized(""))
}
