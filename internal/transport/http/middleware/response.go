package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes the {error, details} envelope the verification clients decode.
func writeJSONError(w http.ResponseWriter, status int, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"error": msg}
	if details != "" {
		body["details"] = details
	}
	_ = json.NewEncoder(w).Encode(body)
}
