package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// jsonSuccess writes {"success": true} plus any extra members.
func jsonSuccess(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	jsonResponse(w, http.StatusOK, body)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r io.ReadCloser, target any) error {
	defer r.Close()
	return json.NewDecoder(r).Decode(target)
}
