package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KyleBrandon/climate-server/internal/device"
	"github.com/KyleBrandon/climate-server/internal/readings"
	"github.com/KyleBrandon/climate-server/pkg/utils"
	"github.com/go-resty/resty/v2"
)

// RegisterRoutes exposes the fan endpoints the server forwards commands to.
func (d *Device) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/fan", d.handlerFanGet)
	mux.HandleFunc("POST /api/fan", d.handlerFanPost)
	mux.HandleFunc("GET /api/sensor", d.handlerSensorGet)
}

func (d *Device) handlerFanGet(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, device.FanResponse{Success: true, FanState: string(d.FanState())})
}

func (d *Device) handlerFanPost(w http.ResponseWriter, r *http.Request) {
	var request device.FanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, ErrInvalidFanMode.Error(), err)
		return
	}

	if err := d.SetFan(request.Value); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error(), err)
		return
	}

	slog.Info("fan command applied", "value", request.Value, "fan_state", d.FanState())

	utils.RespondWithJSON(w, http.StatusOK, device.FanResponse{Success: true, FanState: string(d.FanState())})
}

func (d *Device) handlerSensorGet(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, SensorResponse{
		Reading: d.Current(time.Now()),
		Sensor:  "BME280 (simulated)",
	})
}

func NewPoster(serverURL string, timeout time.Duration) *Poster {
	c := resty.New().
		SetBaseURL(strings.TrimRight(serverURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Poster{http: c}
}

// Post sends one reading to the ingest endpoint.
func (p *Poster) Post(ctx context.Context, r readings.Reading) error {
	var failure device.ErrorResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(r).
		SetError(&failure).
		Post("/api/temperature")
	if err != nil {
		return fmt.Errorf("failed to reach the server: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("%w: status %d: %s", ErrServerRejected, resp.StatusCode(), failure.Error)
	}

	return nil
}
