package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DEFAULT_SEND_QUEUE_SIZE = 16
	DEFAULT_WRITE_TIMEOUT   = 10 * time.Second
	DEFAULT_PING_TIMEOUT    = 10 * time.Second
	DEFAULT_ENQUEUE_TIMEOUT = 250 * time.Millisecond
)

// Heartbeat states. A client moves to AWAITING_PONG when a sweep pings it,
// back to ALIVE when the pong arrives and to DEAD when the next sweep finds
// the ping unanswered.
const (
	CONNSTATE_ALIVE ConnState = iota
	CONNSTATE_AWAITING_PONG
	CONNSTATE_DEAD
)

var (
	ErrSlowConsumer        = errors.New("client send queue is full")
	ErrClientNotRegistered = errors.New("client is not registered")
	ErrStaleConnection     = errors.New("client did not answer the last heartbeat")
)

type (
	ConnState int

	// Conn is the transport of a single viewer.
	Conn interface {
		Write(ctx context.Context, data []byte) error
		Ping(ctx context.Context) error
		Close(reason string) error
		RemoteAddr() string
	}

	Config struct {
		SendQueueSize int
		WriteTimeout  time.Duration
		PingTimeout   time.Duration

		// EnqueueTimeout bounds how long one broadcast waits for full queues
		// to drain before their clients are dropped as slow.
		EnqueueTimeout time.Duration
	}

	Client struct {
		ID         uuid.UUID
		RemoteAddr string

		hub       *Hub
		conn      Conn
		send      chan []byte
		done      chan struct{}
		closeOnce sync.Once

		// guarded by hub.mu
		state        ConnState
		lastActivity time.Time
	}

	// Hub is the registry of live clients and the broadcaster that fans
	// messages out to them.
	Hub struct {
		mu      sync.Mutex
		wg      sync.WaitGroup
		clients map[uuid.UUID]*Client
		config  Config
	}
)

func (s ConnState) String() string {
	switch s {
	case CONNSTATE_ALIVE:
		return "alive"
	case CONNSTATE_AWAITING_PONG:
		return "awaiting_pong"
	case CONNSTATE_DEAD:
		return "dead"
	}

	return "unknown"
}
