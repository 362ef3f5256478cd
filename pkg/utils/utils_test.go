package utils

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		valid    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			level, err := ParseLogLevel(tc.input)
			if (err == nil) != tc.valid {
				t.Fatalf("unexpected error state: %v", err)
			}

			if level != tc.expected {
				t.Errorf("expected level %v, got %v", tc.expected, level)
			}
		})
	}
}

func TestRespondWithError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithError(rr, http.StatusBadRequest, "bad temperature", errors.New("parse failure"))

	TestExpectedStatus(t, rr, http.StatusBadRequest)
	TestExpectedMessage(t, rr, `{"error":"bad temperature"}`)

	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected a JSON content type, got %s", rr.Header().Get("Content-Type"))
	}
}
