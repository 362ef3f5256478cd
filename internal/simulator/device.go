package simulator

import (
	"math"
	"math/rand"
	"time"

	"github.com/KyleBrandon/climate-server/internal/readings"
)

func NewDevice(threshold float64, seed int64) *Device {
	return &Device{
		rnd:         rand.New(rand.NewSource(seed)),
		threshold:   threshold,
		autoControl: true,
		temperature: 25.0,
		humidity:    60.0,
		pressure:    1013.25,
		altitude:    540.0,
	}
}

// Step drifts the readings once and returns the result.
func (d *Device) Step(now time.Time) readings.Reading {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.temperature = clamp(d.temperature+d.jitter(0.5), 15, 35)
	d.humidity = clamp(d.humidity+d.jitter(2), 30, 90)
	d.pressure += d.jitter(0.2)

	if d.fanOn && d.temperature > FAN_COOLING_ABOVE {
		d.temperature -= FAN_COOLING_C
	}

	if d.autoControl {
		d.fanOn = d.temperature >= d.threshold
	}

	return d.reading(now)
}

// SetFan applies an on, off or auto command.
func (d *Device) SetFan(mode string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch mode {
	case FANMODE_ON:
		d.fanOn = true
		d.autoControl = false
	case FANMODE_OFF:
		d.fanOn = false
		d.autoControl = false
	case FANMODE_AUTO:
		d.autoControl = true
		d.fanOn = d.temperature >= d.threshold
	default:
		return ErrInvalidFanMode
	}

	return nil
}

func (d *Device) FanState() readings.FanState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.fanState()
}

func (d *Device) Current(now time.Time) readings.Reading {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.reading(now)
}

func (d *Device) reading(now time.Time) readings.Reading {
	humidity := round1(d.humidity)
	pressure := round1(d.pressure)
	altitude := d.altitude

	return readings.Reading{
		Temperature: round1(d.temperature),
		Humidity:    &humidity,
		Pressure:    &pressure,
		Altitude:    &altitude,
		Timestamp:   now.UnixMilli(),
		FanState:    d.fanState(),
		AutoControl: d.autoControl,
	}
}

func (d *Device) fanState() readings.FanState {
	if d.fanOn {
		return readings.FANSTATE_ON
	}

	return readings.FANSTATE_OFF
}

func (d *Device) jitter(amplitude float64) float64 {
	return (d.rnd.Float64()*2 - 1) * amplitude
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
