package temperatures

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KyleBrandon/climate-server/internal/readings"
)

// DecodeReading parses a device payload. Only the temperature is mandatory;
// optional fields that cannot be parsed are treated as absent. The returned
// auto-control flag is nil when the device did not report one.
func DecodeReading(raw []byte) (readings.Reading, *bool, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return readings.Reading{}, nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	value, ok := payload["temperature"]
	if !ok || value == nil {
		return readings.Reading{}, nil, fmt.Errorf("%w: missing temperature", ErrInvalidPayload)
	}

	temperature, err := parseFloat(value)
	if err != nil {
		return readings.Reading{}, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if err := readings.ValidateTemperature(temperature); err != nil {
		return readings.Reading{}, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	r := readings.Reading{
		Temperature: temperature,
		Humidity:    optionalFloat(payload, "humidity"),
		Pressure:    optionalFloat(payload, "pressure"),
		Altitude:    optionalFloat(payload, "altitude"),
		Timestamp:   optionalTimestamp(payload, "timestamp"),
		FanState:    optionalFanState(payload, "fan_state"),
	}

	return r, optionalBool(payload, "auto_control"), nil
}

func optionalFloat(payload map[string]any, key string) *float64 {
	value, ok := payload[key]
	if !ok || value == nil {
		return nil
	}

	parsed, err := parseFloat(value)
	if err != nil {
		return nil
	}

	return &parsed
}

func optionalTimestamp(payload map[string]any, key string) int64 {
	value, ok := payload[key]
	if !ok || value == nil {
		return 0
	}

	// out of int64 range converts to garbage, so it counts as absent
	parsed, err := parseFloat(value)
	if err != nil || parsed <= 0 || parsed >= math.MaxInt64 {
		return 0
	}

	return int64(parsed)
}

func optionalFanState(payload map[string]any, key string) readings.FanState {
	switch typed := payload[key].(type) {
	case string:
		state, _ := readings.ParseFanState(typed)
		return state
	case bool:
		if typed {
			return readings.FANSTATE_ON
		}
		return readings.FANSTATE_OFF
	}

	return ""
}

func optionalBool(payload map[string]any, key string) *bool {
	switch typed := payload[key].(type) {
	case bool:
		return &typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return nil
		}
		return &parsed
	}

	return nil
}

// parseFloat accepts JSON numbers and numeric strings. NaN and infinities are rejected.
func parseFloat(value any) (float64, error) {
	var parsed float64
	var err error

	switch typed := value.(type) {
	case json.Number:
		parsed, err = typed.Float64()
	case string:
		parsed, err = strconv.ParseFloat(strings.TrimSpace(typed), 64)
	case float64:
		parsed = typed
	default:
		return 0, fmt.Errorf("unsupported number type %T", value)
	}

	if err != nil {
		return 0, err
	}

	if err := readings.ValidateFinite(parsed); err != nil {
		return 0, err
	}

	return parsed, nil
}
