package readings

import (
	"math"
	"strings"
)

// DefaultActuatorState is reported while no reading has been stored.
var DefaultActuatorState = ActuatorState{FanState: FANSTATE_OFF, AutoControl: true}

// NewStore creates an empty store holding at most capacity readings.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DEFAULT_HISTORY_SIZE
	}

	return &Store{
		buf:      make([]Reading, capacity),
		capacity: capacity,
	}
}

func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.count
}

// Append adds the reading to the tail, evicting the oldest reading once the
// store is full.
func (s *Store) Append(r Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tail := (s.head + s.count) % s.capacity
	s.buf[tail] = r.clone()

	if s.count < s.capacity {
		s.count++
	} else {
		s.head = (s.head + 1) % s.capacity
	}
}

// Snapshot returns a copy of the stored readings, oldest first.
func (s *Store) Snapshot() []Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Reading, 0, s.count)
	for i := 0; i < s.count; i++ {
		result = append(result, s.buf[(s.head+i)%s.capacity].clone())
	}

	return result
}

// Latest returns the most recent reading. The boolean is false when the store is empty.
func (s *Store) Latest() (Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return Reading{}, false
	}

	return s.buf[s.latestIndex()].clone(), true
}

// UpdateLatest applies update to the most recent reading in place and returns
// the result. Nothing happens when the store is empty.
func (s *Store) UpdateLatest(update func(*Reading)) (Reading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		return Reading{}, false
	}

	latest := &s.buf[s.latestIndex()]
	update(latest)

	return latest.clone(), true
}

// Actuator derives the current fan state from the latest reading.
func (s *Store) Actuator() ActuatorState {
	latest, ok := s.Latest()
	if !ok {
		return DefaultActuatorState
	}

	return latest.Actuator()
}

func (s *Store) latestIndex() int {
	return (s.head + s.count - 1) % s.capacity
}

// Actuator returns the fan fields of the reading. A reading without a fan
// state reports the fan as off.
func (r Reading) Actuator() ActuatorState {
	state := r.FanState
	if state == "" {
		state = FANSTATE_OFF
	}

	return ActuatorState{
		FanState:    state,
		AutoControl: r.AutoControl,
	}
}

// Validate checks the temperature is a finite value inside the supported range.
func (r Reading) Validate() error {
	return ValidateTemperature(r.Temperature)
}

func ValidateTemperature(t float64) error {
	if err := ValidateFinite(t); err != nil {
		return ErrTemperatureNotFinite
	}

	if t < MIN_TEMPERATURE_C || t > MAX_TEMPERATURE_C {
		return ErrTemperatureOutOfRange
	}

	return nil
}

func ValidateFinite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrNotFinite
	}

	return nil
}

// ParseFanState accepts "on" and "off" in any case.
func ParseFanState(value string) (FanState, bool) {
	switch FanState(strings.ToLower(strings.TrimSpace(value))) {
	case FANSTATE_ON:
		return FANSTATE_ON, true
	case FANSTATE_OFF:
		return FANSTATE_OFF, true
	}

	return "", false
}

func (r Reading) clone() Reading {
	c := r
	c.Humidity = copyFloat(r.Humidity)
	c.Pressure = copyFloat(r.Pressure)
	c.Altitude = copyFloat(r.Altitude)

	return c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}

	c := *v
	return &c
}
