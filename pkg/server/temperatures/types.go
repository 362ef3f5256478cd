package temperatures

import (
	"errors"

	"github.com/KyleBrandon/climate-server/internal/readings"
)

const MAX_BODY_BYTES = 1 << 20

var (
	ErrInvalidPayload = errors.New("temperature data is required and must be a number between -50 and 100")
	ErrInvalidBody    = errors.New("request body must be a JSON object")
)

type (
	ReadingIngester interface {
		IngestReading(r readings.Reading, autoControl *bool) (readings.Reading, error)
		History() []readings.Reading
	}

	Handler struct {
		mctx ReadingIngester
	}

	IngestResponse struct {
		Success bool `json:"success"`
	}

	ReadingsResponse struct {
		Message   string             `json:"message"`
		Readings  []readings.Reading `json:"readings"`
		Timestamp int64              `json:"timestamp"`
	}
)
