// Package handler provides HTTP request handlers for the REST API.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// StatusHandler answers every request with a JSON error of the given status.
// It backs the router's not found and method not allowed responses.
func StatusHandler(status int, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, model.ErrorResponse{
			Code:    status,
			Message: http.StatusText(status),
		}, logger)
	})
}
