package handler

import (
	"encoding/json"
	"net/http"
)

// errorBody is the error-path response shape for the ranking engine's
// HTTP surface: {"error": "..."}. Success responses are the bare
// array or object, not wrapped in an envelope; the storefront
// frontend consuming this surface expects exactly these shapes.
type errorBody struct {
	Error string `json:"error"`
}

// respondJSON writes v as the JSON response body with the given
// status code.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
