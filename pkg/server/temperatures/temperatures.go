package temperatures

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/KyleBrandon/climate-server/internal/readings"
	"github.com/KyleBrandon/climate-server/pkg/utils"
)

func NewHandler(mctx ReadingIngester) *Handler {
	return &Handler{
		mctx,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/temperature", h.handlerTemperaturesGet)
	mux.HandleFunc("POST /api/temperature", h.handlerTemperaturePost)
}

func (h *Handler) handlerTemperaturesGet(w http.ResponseWriter, r *http.Request) {
	slog.Debug(">>handlerTemperaturesGet")
	defer slog.Debug("<<handlerTemperaturesGet")

	response := ReadingsResponse{
		Message:   "Temperature API is working!",
		Readings:  h.mctx.History(),
		Timestamp: time.Now().UnixMilli(),
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

// handlerTemperaturePost accepts a reading from the device and broadcasts it to the viewers.
func (h *Handler) handlerTemperaturePost(w http.ResponseWriter, r *http.Request) {
	slog.Debug(">>handlerTemperaturePost")
	defer slog.Debug("<<handlerTemperaturePost")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MAX_BODY_BYTES))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid body for temperature reading", err)
		return
	}

	defer r.Body.Close()

	reading, autoControl, err := DecodeReading(body)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error(), err)
		return
	}

	stored, err := h.mctx.IngestReading(reading, autoControl)
	if err != nil {
		if errors.Is(err, readings.ErrTemperatureNotFinite) || errors.Is(err, readings.ErrTemperatureOutOfRange) {
			utils.RespondWithError(w, http.StatusBadRequest, ErrInvalidPayload.Error(), err)
			return
		}

		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	slog.Info("reading received", "temperature", stored.Temperature, "timestamp", stored.Timestamp, "fan_state", stored.FanState)

	utils.RespondWithJSON(w, http.StatusOK, IngestResponse{Success: true})
}
