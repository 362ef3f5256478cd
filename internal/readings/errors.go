package readings

import "errors"

var (
	ErrNotFinite             = errors.New("value must be a finite number")
	ErrTemperatureNotFinite  = errors.New("temperature must be a finite number")
	ErrTemperatureOutOfRange = errors.New("temperature must be between -50 and 100 degrees Celsius")
)
