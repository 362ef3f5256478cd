package readings

import (
	"sync"
)

const (
	DEFAULT_HISTORY_SIZE = 20

	MIN_TEMPERATURE_C = -50.0
	MAX_TEMPERATURE_C = 100.0
)

const (
	FANSTATE_ON  FanState = "on"
	FANSTATE_OFF FanState = "off"
)

type (
	FanState string

	// Reading is one sample reported by the device. Optional sensor values are
	// nil when the device did not report them.
	Reading struct {
		Temperature float64  `json:"temperature"`
		Humidity    *float64 `json:"humidity,omitempty"`
		Pressure    *float64 `json:"pressure,omitempty"`
		Altitude    *float64 `json:"altitude,omitempty"`
		Timestamp   int64    `json:"timestamp"`
		FanState    FanState `json:"fan_state,omitempty"`
		AutoControl bool     `json:"auto_control"`
	}

	ActuatorState struct {
		FanState    FanState `json:"fan_state"`
		AutoControl bool     `json:"auto_control"`
	}

	// Store is a fixed capacity FIFO of readings kept in arrival order.
	Store struct {
		mu       sync.RWMutex
		buf      []Reading
		head     int
		count    int
		capacity int
	}
)
