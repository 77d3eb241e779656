package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ApiResponse is the standard envelope for API responses.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, ApiResponse{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeData wraps data in a success envelope, logging encoding failures.
func writeData(w http.ResponseWriter, logger *zap.Logger, statusCode int, data any) {
	if err := WriteJSON(w, statusCode, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeError writes an error envelope, logging encoding failures.
func writeError(w http.ResponseWriter, logger *zap.Logger, statusCode int, errorCode, message string) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
