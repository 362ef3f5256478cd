package stream

import (
	"github.com/KyleBrandon/climate-server/internal/hub"
	"github.com/coder/websocket"
)

const READ_LIMIT = 4096

type (
	// Monitor is the part of the monitor context the push channel needs.
	Monitor interface {
		Connect(conn hub.Conn) (*hub.Client, error)
		Disconnect(c *hub.Client)
		HandleCommand(c *hub.Client, raw []byte) error
	}

	Handler struct {
		mctx           Monitor
		originPatterns []string
	}

	wsConn struct {
		c          *websocket.Conn
		remoteAddr string
	}
)
