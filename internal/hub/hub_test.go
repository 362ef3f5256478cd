package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type mockConn struct {
	mu         sync.Mutex
	written    chan string
	writeErr   error
	pingErr    error
	block      chan struct{}
	closed     chan struct{}
	closeCount int
}

func newMockConn() *mockConn {
	return &mockConn{
		written: make(chan string, 64),
		closed:  make(chan struct{}),
	}
}

func (m *mockConn) Write(ctx context.Context, data []byte) error {
	m.mu.Lock()
	writeErr := m.writeErr
	block := m.block
	m.mu.Unlock()

	if writeErr != nil {
		return writeErr
	}

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		case <-m.closed:
			return errors.New("connection closed")
		}
	}

	select {
	case <-m.closed:
		return errors.New("connection closed")
	default:
	}

	m.written <- string(data)
	return nil
}

func (m *mockConn) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *mockConn) Close(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeCount++
	if m.closeCount == 1 {
		close(m.closed)
	}
	return nil
}

func (m *mockConn) RemoteAddr() string {
	return "127.0.0.1:1234"
}

func (m *mockConn) closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}

func expectMessage(t *testing.T, m *mockConn, expected string) {
	t.Helper()

	select {
	case msg := <-m.written:
		if msg != expected {
			t.Fatalf("expected message %q, got %q", expected, msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message %q", expected)
	}
}

func expectNoMessage(t *testing.T, m *mockConn) {
	t.Helper()

	select {
	case msg := <-m.written:
		t.Fatalf("expected no message, got %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRegister(t *testing.T) {
	t.Run("should deliver the greeting before any broadcast", func(t *testing.T) {
		h := NewHub(Config{})
		defer h.Close()

		conn := newMockConn()
		h.Register(conn, []byte("history"))
		h.Broadcast([]byte("update-1"))
		h.Broadcast([]byte("update-2"))

		expectMessage(t, conn, "history")
		expectMessage(t, conn, "update-1")
		expectMessage(t, conn, "update-2")
	})

	t.Run("should register without a greeting", func(t *testing.T) {
		h := NewHub(Config{})
		defer h.Close()

		conn := newMockConn()
		c := h.Register(conn, nil)

		if h.Len() != 1 {
			t.Errorf("expected 1 client, got %d", h.Len())
		}

		if h.State(c) != CONNSTATE_ALIVE {
			t.Errorf("expected state %s, got %s", CONNSTATE_ALIVE, h.State(c))
		}

		expectNoMessage(t, conn)
	})
}

func TestUnregister(t *testing.T) {
	h := NewHub(Config{})
	defer h.Close()

	conn := newMockConn()
	c := h.Register(conn, nil)

	h.Unregister(c, "test")
	h.Unregister(c, "test again")

	if h.Len() != 0 {
		t.Errorf("expected no clients, got %d", h.Len())
	}

	if conn.closes() != 1 {
		t.Errorf("expected the transport to be closed once, got %d", conn.closes())
	}

	select {
	case <-c.Done():
	default:
		t.Error("expected the client to be done")
	}
}

func TestBroadcast(t *testing.T) {
	t.Run("should isolate a failing client", func(t *testing.T) {
		h := NewHub(Config{})
		defer h.Close()

		broken := newMockConn()
		broken.writeErr = errors.New("broken pipe")
		healthy := newMockConn()

		h.Register(broken, nil)
		h.Register(healthy, nil)

		h.Broadcast([]byte("first"))
		expectMessage(t, healthy, "first")

		// the broken client is dropped by its writer
		deadline := time.Now().Add(time.Second)
		for h.Len() != 1 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		if h.Len() != 1 {
			t.Fatalf("expected the broken client to be removed, got %d clients", h.Len())
		}

		delivered := h.Broadcast([]byte("second"))
		if delivered != 1 {
			t.Errorf("expected 1 delivery, got %d", delivered)
		}
		expectMessage(t, healthy, "second")
	})

	t.Run("should drop a slow client without blocking", func(t *testing.T) {
		h := NewHub(Config{SendQueueSize: 1, EnqueueTimeout: 200 * time.Millisecond})
		defer h.Close()

		slow := newMockConn()
		slow.block = make(chan struct{})
		fast := newMockConn()

		sc := h.Register(slow, nil)
		h.Register(fast, nil)

		done := make(chan struct{})
		go func() {
			for i := 0; i < 5; i++ {
				h.Broadcast([]byte("update"))
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("broadcast blocked on a slow client")
		}

		select {
		case <-sc.Done():
		case <-time.After(time.Second):
			t.Fatal("expected the slow client to be dropped")
		}

		if h.Len() != 1 {
			t.Errorf("expected 1 client left, got %d", h.Len())
		}

		for i := 0; i < 5; i++ {
			expectMessage(t, fast, "update")
		}
	})

	t.Run("should keep a healthy client through a burst larger than its queue", func(t *testing.T) {
		h := NewHub(Config{})
		defer h.Close()

		conn := newMockConn()
		c := h.Register(conn, nil)

		burst := DEFAULT_SEND_QUEUE_SIZE + 24
		for i := 0; i < burst; i++ {
			if delivered := h.Broadcast([]byte(fmt.Sprintf("update-%d", i))); delivered != 1 {
				t.Fatalf("broadcast %d: expected 1 delivery, got %d", i, delivered)
			}
		}

		select {
		case <-c.Done():
			t.Fatal("expected the healthy client to stay registered")
		default:
		}

		for i := 0; i < burst; i++ {
			expectMessage(t, conn, fmt.Sprintf("update-%d", i))
		}

		if h.Len() != 1 {
			t.Errorf("expected 1 client, got %d", h.Len())
		}
	})
}

func TestSendTo(t *testing.T) {
	h := NewHub(Config{})
	defer h.Close()

	first := newMockConn()
	second := newMockConn()
	c := h.Register(first, nil)
	h.Register(second, nil)

	if err := h.SendTo(c, []byte("history")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectMessage(t, first, "history")
	expectNoMessage(t, second)

	h.Unregister(c, "test")
	if err := h.SendTo(c, []byte("history")); !errors.Is(err, ErrClientNotRegistered) {
		t.Errorf("expected %v, got %v", ErrClientNotRegistered, err)
	}
}

func TestSweep(t *testing.T) {
	t.Run("should keep clients that answer the ping", func(t *testing.T) {
		h := NewHub(Config{})
		defer h.Close()

		conn := newMockConn()
		c := h.Register(conn, nil)

		for i := 0; i < 3; i++ {
			h.Sweep(context.Background())
		}

		if h.State(c) != CONNSTATE_ALIVE {
			t.Errorf("expected state %s, got %s", CONNSTATE_ALIVE, h.State(c))
		}

		if h.Len() != 1 {
			t.Errorf("expected 1 client, got %d", h.Len())
		}
	})

	t.Run("should remove a client that misses consecutive pings", func(t *testing.T) {
		h := NewHub(Config{PingTimeout: 50 * time.Millisecond})
		defer h.Close()

		silent := newMockConn()
		silent.pingErr = context.DeadlineExceeded
		healthy := newMockConn()

		c := h.Register(silent, nil)
		h.Register(healthy, nil)

		h.Sweep(context.Background())
		if h.State(c) != CONNSTATE_AWAITING_PONG {
			t.Fatalf("expected state %s, got %s", CONNSTATE_AWAITING_PONG, h.State(c))
		}

		h.Sweep(context.Background())
		if h.State(c) != CONNSTATE_DEAD {
			t.Fatalf("expected state %s, got %s", CONNSTATE_DEAD, h.State(c))
		}

		if h.Len() != 1 {
			t.Fatalf("expected 1 client, got %d", h.Len())
		}

		if silent.closes() != 1 {
			t.Errorf("expected the stale transport to be closed")
		}

		h.Broadcast([]byte("update"))
		expectMessage(t, healthy, "update")
		expectNoMessage(t, silent)
	})
}

func TestTouch(t *testing.T) {
	h := NewHub(Config{})
	defer h.Close()

	c := h.Register(newMockConn(), nil)
	before := h.LastActivity(c)

	time.Sleep(5 * time.Millisecond)
	h.Touch(c)

	if !h.LastActivity(c).After(before) {
		t.Error("expected the last activity to move forward")
	}
}
