package health

import (
	"log/slog"
	"time"

	"github.com/KyleBrandon/climate-server/pkg/server/monitor"
)

type (
	StatusReporter interface {
		Status() monitor.Status
	}

	Handler struct {
		loggerLevel *slog.LevelVar
		logger      *slog.Logger
		reporter    StatusReporter
	}

	ProbeResponse struct {
		Message       string     `json:"message"`
		Timestamp     int64      `json:"timestamp"`
		Status        string     `json:"status"`
		Clients       int        `json:"clients"`
		Readings      int        `json:"readings"`
		LastReadingAt *time.Time `json:"last_reading_at,omitempty"`
		DeviceSilent  bool       `json:"device_silent"`
	}

	LogLevelResponse struct {
		Level string `json:"level"`
	}
)
