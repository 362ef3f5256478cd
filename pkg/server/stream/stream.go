package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/KyleBrandon/climate-server/internal/hub"
	"github.com/KyleBrandon/climate-server/pkg/server/monitor"
	"github.com/coder/websocket"
)

func NewHandler(mctx Monitor, originPatterns []string) *Handler {
	h := Handler{
		mctx,
		originPatterns,
	}

	return &h
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.handleWS)
}

func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	slog.Debug(">>handleWS: new incoming connection")
	defer slog.Debug("<<handleWS")

	opts := &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	}
	c, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("websocket accept error:", "error", err)
		return
	}

	c.SetReadLimit(READ_LIMIT)

	client, err := h.mctx.Connect(&wsConn{c: c, remoteAddr: r.RemoteAddr})
	if err != nil {
		slog.Error("failed to register client", "error", err)
		c.Close(websocket.StatusInternalError, "failed to register")
		return
	}

	defer h.mctx.Disconnect(client)

	h.readCommands(r.Context(), c, client)
}

// readCommands processes viewer messages until the connection goes away. A bad
// message is logged and skipped.
func (h *Handler) readCommands(ctx context.Context, c *websocket.Conn, client *hub.Client) {
	slog.Debug(">>readCommands", "client", client.ID)
	defer slog.Debug("<<readCommands", "client", client.ID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// stop reading once the hub drops the client
	go func() {
		select {
		case <-client.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				slog.Info("readCommands: client disconnected", "client", client.ID)
			default:
				slog.Debug("readCommands: read failed", "client", client.ID, "error", err)
			}
			return
		}

		err = h.mctx.HandleCommand(client, data)
		switch {
		case err == nil:
		case errors.Is(err, monitor.ErrEmptyStore):
			slog.Debug("ignoring fan command, no reading yet", "client", client.ID)
		default:
			slog.Warn("ignoring viewer command", "client", client.ID, "error", err)
		}
	}
}

func (ws *wsConn) Write(ctx context.Context, data []byte) error {
	return ws.c.Write(ctx, websocket.MessageText, data)
}

// Ping waits for the pong, which the read loop in readCommands processes.
func (ws *wsConn) Ping(ctx context.Context) error {
	return ws.c.Ping(ctx)
}

// Close starts the close handshake without waiting for the peer.
func (ws *wsConn) Close(reason string) error {
	go func() {
		if err := ws.c.Close(websocket.StatusNormalClosure, reason); err != nil {
			slog.Debug("websocket close failed", "error", err)
		}
	}()

	return nil
}

func (ws *wsConn) RemoteAddr() string {
	return ws.remoteAddr
}
