package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

func NewHub(config Config) *Hub {
	if config.SendQueueSize <= 0 {
		config.SendQueueSize = DEFAULT_SEND_QUEUE_SIZE
	}

	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DEFAULT_WRITE_TIMEOUT
	}

	if config.PingTimeout <= 0 {
		config.PingTimeout = DEFAULT_PING_TIMEOUT
	}

	if config.EnqueueTimeout <= 0 {
		config.EnqueueTimeout = DEFAULT_ENQUEUE_TIMEOUT
	}

	return &Hub{
		clients: make(map[uuid.UUID]*Client),
		config:  config,
	}
}

// Register adds the connection to the live set. The greeting is queued ahead
// of anything broadcast after Register returns.
func (h *Hub) Register(conn Conn, greeting []byte) *Client {
	c := &Client{
		ID:           uuid.New(),
		RemoteAddr:   conn.RemoteAddr(),
		hub:          h,
		conn:         conn,
		send:         make(chan []byte, h.config.SendQueueSize),
		done:         make(chan struct{}),
		state:        CONNSTATE_ALIVE,
		lastActivity: time.Now().UTC(),
	}

	if greeting != nil {
		c.send <- greeting
	}

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	h.wg.Add(1)
	go c.writePump()

	slog.Info("client registered", "client", c.ID, "remote_addr", c.RemoteAddr)

	return c
}

// Unregister removes the client and closes its transport. Calling it for a
// client that is already gone does nothing.
func (h *Hub) Unregister(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	if ok {
		delete(h.clients, c.ID)
		c.state = CONNSTATE_DEAD
	}
	h.mu.Unlock()

	if ok {
		slog.Info("client unregistered", "client", c.ID, "reason", reason)
	}

	c.shutdown(reason)
}

// Broadcast queues msg for every client and returns how many accepted it.
// A full queue gets up to EnqueueTimeout to drain, shared by all clients of
// this broadcast. Clients whose queue is still full after that are dropped.
func (h *Hub) Broadcast(msg []byte) int {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	delivered := 0
	full := make([]*Client, 0)
	for _, c := range clients {
		select {
		case c.send <- msg:
			delivered++
		default:
			full = append(full, c)
		}
	}

	if len(full) == 0 {
		return delivered
	}

	timer := time.NewTimer(h.config.EnqueueTimeout)
	defer timer.Stop()

	accepted, slow := h.enqueueWithin(full, msg, timer.C)
	for _, c := range slow {
		slog.Warn("dropping slow client", "client", c.ID, "error", ErrSlowConsumer)
		h.Unregister(c, "send queue full")
	}

	return delivered + accepted
}

// SendTo queues msg for a single client.
func (h *Hub) SendTo(c *Client, msg []byte) error {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	h.mu.Unlock()

	if !ok {
		return ErrClientNotRegistered
	}

	timer := time.NewTimer(h.config.EnqueueTimeout)
	defer timer.Stop()

	if _, slow := h.enqueueWithin([]*Client{c}, msg, timer.C); len(slow) != 0 {
		slog.Warn("dropping slow client", "client", c.ID, "error", ErrSlowConsumer)
		h.Unregister(c, "send queue full")
		return ErrSlowConsumer
	}

	return nil
}

// enqueueWithin waits for room in each queue until expired fires. It returns
// how many clients took the message and the ones that never did. Clients that
// went away meanwhile are in neither.
func (h *Hub) enqueueWithin(clients []*Client, msg []byte, expired <-chan time.Time) (int, []*Client) {
	accepted := 0
	slow := make([]*Client, 0)
	timedOut := false

	for _, c := range clients {
		if !timedOut {
			select {
			case c.send <- msg:
				accepted++
				continue
			case <-c.done:
				continue
			case <-expired:
				timedOut = true
			}
		}

		select {
		case c.send <- msg:
			accepted++
		case <-c.done:
		default:
			slow = append(slow, c)
		}
	}

	return accepted, slow
}

// Sweep runs one heartbeat round. Clients that have not answered the ping of
// the previous round are removed, every other client is pinged. Sweep returns
// once all pings are answered or have timed out.
func (h *Hub) Sweep(ctx context.Context) {
	slog.Debug(">>Sweep")
	defer slog.Debug("<<Sweep")

	stale := make([]*Client, 0)
	ping := make([]*Client, 0)

	h.mu.Lock()
	for _, c := range h.clients {
		if c.state == CONNSTATE_AWAITING_PONG {
			stale = append(stale, c)
			continue
		}

		c.state = CONNSTATE_AWAITING_PONG
		ping = append(ping, c)
	}
	h.mu.Unlock()

	for _, c := range stale {
		slog.Warn("removing stale client", "client", c.ID, "error", ErrStaleConnection)
		h.Unregister(c, "heartbeat timeout")
	}

	var wg sync.WaitGroup
	for _, c := range ping {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()

			pingCtx, cancel := context.WithTimeout(ctx, h.config.PingTimeout)
			defer cancel()

			if err := c.conn.Ping(pingCtx); err != nil {
				slog.Debug("ping failed", "client", c.ID, "error", err)
				return
			}

			h.markAlive(c)
		}(c)
	}

	wg.Wait()
}

// Touch records inbound activity from the client.
func (h *Hub) Touch(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.lastActivity = time.Now().UTC()
}

func (h *Hub) State(c *Client) ConnState {
	h.mu.Lock()
	defer h.mu.Unlock()

	return c.state
}

func (h *Hub) LastActivity(c *Client) time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()

	return c.lastActivity
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Close drops every client and waits for their writers to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.Unregister(c, "server shutting down")
	}

	h.wg.Wait()
}

func (h *Hub) markAlive(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return
	}

	c.state = CONNSTATE_ALIVE
	c.lastActivity = time.Now().UTC()
}
