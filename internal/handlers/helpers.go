package handlers

import (
	"encoding/json"
	"net/http"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response. The code is the machine
// error label from the pipeline taxonomy ("invalid_input", "too_large",
// "not_found", "internal"); message is the human-readable detail.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status":  "error",
		"error":   code,
		"message": message,
	})
}

// getString extracts a string field from an event payload map.
func getString(payload map[string]interface{}, key string) string {
	if val, ok := payload[key].(string); ok {
		return val
	}
	return ""
}

// getInt extracts an int field from an event payload map. JSON round-trips
// land numbers as float64, so both shapes are accepted.
func getInt(payload map[string]interface{}, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
