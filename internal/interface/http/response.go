package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the envelope of every API response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeEnvelope(w, status, JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC(), Version: "v1"},
		RequestID: getRequestID(r.Context()),
	})
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]string) {
	writeEnvelope(w, status, JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message, Details: details},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC(), Version: "v1"},
		RequestID: getRequestID(r.Context()),
	})
}

func writeEnvelope(w http.ResponseWriter, status int, body JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// statusFor maps an error kind to its HTTP status and API code.
func statusFor(err error) (int, string) {
	switch shared.KindOf(err) {
	case "validation":
		return http.StatusUnprocessableEntity, "validation_error"
	case "forbidden":
		return http.StatusForbidden, "forbidden"
	case "unauthorized":
		return http.StatusUnauthorized, "unauthorized"
	case "not_found":
		return http.StatusNotFound, "not_found"
	case "conflict":
		return http.StatusConflict, "conflict"
	case "timeout":
		return http.StatusGatewayTimeout, "timeout"
	case "unavailable":
		return http.StatusServiceUnavailable, "service_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError renders err. Domain messages are shown to the client; anything
// else is logged and replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	message, public := shared.PublicMessage(err)
	if !public || status == http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			logger.Int("status", status),
			logger.Err(err),
		)
	}

	var details map[string]string
	var de *shared.DomainError
	if errors.As(err, &de) && len(de.Details) > 0 {
		details = de.Details
	}

	writeErrorResponse(w, r, status, code, message, details)
}
