package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/KyleBrandon/climate-server/internal/hub"
	"github.com/KyleBrandon/climate-server/internal/readings"
)

const (
	DEFAULT_HEARTBEAT_INTERVAL     = 30 * time.Second
	DEFAULT_SILENCE_CHECK_INTERVAL = 1 * time.Minute
	DEFAULT_DEVICE_TIMEOUT         = 10 * time.Second
	DEVICE_QUEUE_SIZE              = 8
)

const (
	MESSAGETYPE_HISTORY = "history"
	MESSAGETYPE_UPDATE  = "update"
)

const (
	COMMANDTYPE_REQUEST_DATA = "request-data"
	COMMANDTYPE_FAN_CONTROL  = "fan_control"
)

const (
	FANCOMMAND_ON   FanCommand = "on"
	FANCOMMAND_OFF  FanCommand = "off"
	FANCOMMAND_AUTO FanCommand = "auto"
)

var (
	ErrMalformedCommand  = errors.New("malformed command")
	ErrUnknownCommand    = errors.New("unknown command type")
	ErrInvalidFanCommand = errors.New("fan_control value must be on, off or auto")
	ErrEmptyStore        = errors.New("no reading available to apply the command to")
)

type (
	FanCommand string

	// Command is a message sent by a viewer over the push channel.
	Command struct {
		Type  string     `json:"type"`
		Value FanCommand `json:"value,omitempty"`
	}

	HistoryMessage struct {
		Type string             `json:"type"`
		Data []readings.Reading `json:"data"`
	}

	UpdateMessage struct {
		Type            string `json:"type"`
		CommandResponse bool   `json:"command_response,omitempty"`
		readings.Reading
	}

	DeviceTask struct {
		Command FanCommand
	}

	NotificationTask struct {
		Message string
	}

	// DeviceController forwards fan commands to the physical device.
	DeviceController interface {
		SetFan(ctx context.Context, value string) error
	}

	Notifier interface {
		Send(ctx context.Context, subject, message string) error
	}

	Config struct {
		HeartbeatInterval    time.Duration
		DeviceSilence        time.Duration
		SilenceCheckInterval time.Duration
		DeviceTimeout        time.Duration
		Hub                  hub.Config
	}

	Status struct {
		Clients       int                    `json:"clients"`
		Readings      int                    `json:"readings"`
		LastReadingAt *time.Time             `json:"last_reading_at,omitempty"`
		DeviceSilent  bool                   `json:"device_silent"`
		Actuator      readings.ActuatorState `json:"actuator"`
	}

	// MonitorContext owns the reading history and the client registry. Every
	// mutation of either happens while holding the embedded mutex.
	MonitorContext struct {
		sync.Mutex
		wg                *sync.WaitGroup
		ctx               context.Context
		monitorCancelFunc context.CancelFunc
		config            Config
		now               func() time.Time

		store *readings.Store
		hub   *hub.Hub

		lastIngestAt time.Time
		deviceSilent bool

		Device struct {
			DeviceCh   chan DeviceTask
			controller DeviceController
		}

		Notification struct {
			NotifyCh chan NotificationTask
			notifier Notifier
		}
	}
)
