package httpx

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Data wraps a payload in the {"data": ...} envelope clients expect.
func Data(w http.ResponseWriter, status int, v any) {
	JSON(w, status, map[string]any{"data": v})
}

func Error(w http.ResponseWriter, status int, msg string, details ...string) {
	JSON(w, status, errorBody{Error: msg, Details: details})
}
