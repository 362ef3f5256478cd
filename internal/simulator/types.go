package simulator

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/KyleBrandon/climate-server/internal/readings"
	"github.com/go-resty/resty/v2"
)

const (
	DEFAULT_THRESHOLD_C = 28.0

	FANMODE_ON   = "on"
	FANMODE_OFF  = "off"
	FANMODE_AUTO = "auto"

	// fan cooling applied per step while the fan runs above this temperature
	FAN_COOLING_C     = 0.2
	FAN_COOLING_ABOVE = 22.0
)

var (
	ErrInvalidFanMode = errors.New(`invalid command, use {"value":"on"}, {"value":"off"} or {"value":"auto"}`)
	ErrServerRejected = errors.New("server rejected the reading")
)

type (
	// Device models a sensor board with a fan, drifting its readings each step.
	Device struct {
		mu          sync.Mutex
		rnd         *rand.Rand
		threshold   float64
		fanOn       bool
		autoControl bool
		temperature float64
		humidity    float64
		pressure    float64
		altitude    float64
	}

	// Poster sends readings to the climate server.
	Poster struct {
		http *resty.Client
	}

	SensorResponse struct {
		readings.Reading
		Sensor string `json:"sensor"`
	}
)
