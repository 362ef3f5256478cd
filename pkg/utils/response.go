package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	resultData, err := json.Marshal(payload)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Error marshalling result", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(resultData)
}

// RespondWithError logs err and writes {"error": message}.
func RespondWithError(w http.ResponseWriter, code int, message string, err error) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "http_status", code, "error", err)
	} else {
		slog.Warn(message, "http_status", code, "error", err)
	}

	response := struct {
		Error string `json:"error"`
	}{
		Error: message,
	}

	RespondWithJSON(w, code, response)
}

func RespondWithNoContent(w http.ResponseWriter, code int) {
	w.WriteHeader(code)
}
