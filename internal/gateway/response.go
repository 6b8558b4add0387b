package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/meditrack/coordination/pkg/types"
)

// ErrorResponse is the uniform error envelope
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON writes data as JSON with the given status
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes the error envelope
func WriteError(w http.ResponseWriter, statusCode int, message string, detail string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Success: false,
		Message: message,
		Error:   detail,
	})
}

// WriteAppError maps err to a status and envelope. Internal causes are not exposed.
func WriteAppError(w http.ResponseWriter, err error) {
	status := types.HTTPStatus(err)
	detail := ""
	if status < http.StatusInternalServerError {
		detail = err.Error()
	}
	WriteError(w, status, types.PublicMessage(err), detail)
}

// NotFoundHandler answers unknown routes with the error envelope
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Route not found", "")
	})
}
