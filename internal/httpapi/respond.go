package httpapi

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Limit   int    `json:"limit,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeQuotaExceeded carries the configured limit so clients can show it.
func writeQuotaExceeded(w http.ResponseWriter, message string, limit int) {
	writeJSON(w, http.StatusUnprocessableEntity, errorBody{
		Error: errorDetail{Code: "quota_exceeded", Message: message, Limit: limit},
	})
}
