package health

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/KyleBrandon/climate-server/pkg/utils"
)

func NewHandler(loggerLevel *slog.LevelVar, logger *slog.Logger, reporter StatusReporter) *Handler {
	return &Handler{
		loggerLevel: loggerLevel,
		logger:      logger,
		reporter:    reporter,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/health", h.handlerHealthGet)
	mux.HandleFunc("GET /api/test", h.handlerProbeGet)
	mux.HandleFunc("GET /v1/health/log", h.handlerLogLevelGet)
	mux.HandleFunc("PUT /v1/health/log", h.handlerLogLevelPut)
}

func (h *Handler) handlerHealthGet(w http.ResponseWriter, r *http.Request) {
	slog.Debug("enter handlerHealthGet")
	response := struct {
		Status string `json:"status"`
	}{
		Status: "ok",
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

// handlerProbeGet lets viewers tell a stopped server apart from a silent device.
func (h *Handler) handlerProbeGet(w http.ResponseWriter, r *http.Request) {
	slog.Debug("enter handlerProbeGet")

	status := h.reporter.Status()
	response := ProbeResponse{
		Message:       "Server is online",
		Timestamp:     time.Now().UnixMilli(),
		Status:        "online",
		Clients:       status.Clients,
		Readings:      status.Readings,
		LastReadingAt: status.LastReadingAt,
		DeviceSilent:  status.DeviceSilent,
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

func (h *Handler) handlerLogLevelGet(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, LogLevelResponse{Level: h.loggerLevel.Level().String()})
}

func (h *Handler) handlerLogLevelPut(w http.ResponseWriter, r *http.Request) {
	levelStr := r.URL.Query().Get("level")
	level, err := utils.ParseLogLevel(levelStr)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid 'level' parameter", err)
		return
	}

	h.loggerLevel.Set(level)
	h.logger.Info("log level changed", "level", level.String())

	utils.RespondWithJSON(w, http.StatusOK, LogLevelResponse{Level: level.String()})
}
