package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const DEFAULT_REQUEST_TIMEOUT = 5 * time.Second

var ErrDeviceRejected = errors.New("device rejected the fan command")

type (
	FanRequest struct {
		Value string `json:"value"`
	}

	FanResponse struct {
		Success  bool   `json:"success"`
		FanState string `json:"fan_state"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}

	// Client talks to the fan endpoint exposed by the device.
	Client struct {
		http *resty.Client
	}
)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DEFAULT_REQUEST_TIMEOUT
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{http: c}
}

// SetFan posts the fan command to the device.
func (c *Client) SetFan(ctx context.Context, value string) error {
	slog.Debug(">>SetFan", "value", value)
	defer slog.Debug("<<SetFan")

	var result FanResponse
	var failure ErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(FanRequest{Value: value}).
		SetResult(&result).
		SetError(&failure).
		Post("/api/fan")
	if err != nil {
		return fmt.Errorf("failed to reach the device: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("%w: status %d: %s", ErrDeviceRejected, resp.StatusCode(), failure.Error)
	}

	slog.Info("device accepted fan command", "value", value, "fan_state", result.FanState)

	return nil
}

// FanState asks the device for its current fan state.
func (c *Client) FanState(ctx context.Context) (string, error) {
	var result FanResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/api/fan")
	if err != nil {
		return "", fmt.Errorf("failed to reach the device: %w", err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("device returned status %d", resp.StatusCode())
	}

	return result.FanState, nil
}
