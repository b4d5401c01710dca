package response

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents an error response. Recovery names the action
// the operator can take; error states always offer one.
type ErrorResponse struct {
	Error    string `json:"error"`
	Recovery string `json:"recovery,omitempty"`
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Can't change response at this point, just log
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// Error writes an error response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ErrorWithRecovery writes an error response with a recovery hint
func ErrorWithRecovery(w http.ResponseWriter, status int, message, recovery string) {
	JSON(w, status, ErrorResponse{Error: message, Recovery: recovery})
}

// Success writes a success response
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Accepted writes a 202 Accepted response
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, data)
}

// NoContent writes a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
