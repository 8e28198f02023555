package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/longregen/geoqa/internal/adapters/http/dto"
	"github.com/longregen/geoqa/internal/adapters/http/encoding"
)

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respond writes data as JSON or msgpack depending on the Accept header
func respond(w http.ResponseWriter, r *http.Request, data any, status int) {
	if err := encoding.Write(w, r, status, data); err != nil {
		slog.Warn("failed to write response", "path", r.URL.Path, "error", err)
	}
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, errorType string, message string, status int) {
	respondJSON(w, dto.NewErrorResponse(errorType, message, status), status)
}

// parseIntQuery parses an integer query parameter, clamped to [0, maxValue] when maxValue > 0
func parseIntQuery(r *http.Request, name string, defaultValue, maxValue int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil || intValue < 0 {
		return defaultValue
	}
	if maxValue > 0 && intValue > maxValue {
		return maxValue
	}
	return intValue
}

func validateURLParam(r *http.Request, w http.ResponseWriter, paramName, errorField string) (string, bool) {
	value := chi.URLParam(r, paramName)
	if value == "" {
		respondError(w, "invalid_request", errorField+" is required", http.StatusBadRequest)
		return "", false
	}
	return value, true
}

// decodeBody decodes a JSON or msgpack request body
func decodeBody[T any](r *http.Request, w http.ResponseWriter) (*T, bool) {
	var req T
	if err := encoding.Decode(w, r, &req); err != nil {
		respondError(w, "invalid_request", "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}
