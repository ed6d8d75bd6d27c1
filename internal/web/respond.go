package web

import (
	"encoding/json"
	"net/http"
)

// All domain-level failures share one user-facing result shape: a 200
// response carrying {"error": message}. Transport-level problems
// (malformed input, unknown routes) use plain HTTP status codes, and
// persistence failures surface as 500s.

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ok writes the empty success result.
func ok(w http.ResponseWriter) {
	writeJSON(w, map[string]any{})
}

// fail writes a user-facing error result.
func fail(w http.ResponseWriter, msg string) {
	writeJSON(w, map[string]any{"error": msg})
}

// serverError writes a 500 for unexpected failures.
func serverError(w http.ResponseWriter) {
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
