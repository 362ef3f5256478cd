package hub

import (
	"context"
	"log/slog"
)

// Done is closed once the client has been unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) writePump() {
	slog.Debug(">>writePump", "client", c.ID)
	defer slog.Debug("<<writePump", "client", c.ID)

	defer c.hub.wg.Done()

	for {
		// a closed client must not write anything still queued
		select {
		case <-c.done:
			return
		default:
		}

		select {
		case <-c.done:
			return

		case msg := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), c.hub.config.WriteTimeout)
			err := c.conn.Write(ctx, msg)
			cancel()

			if err != nil {
				slog.Error("failed to deliver message", "client", c.ID, "error", err)
				c.hub.Unregister(c, "write failed")
				return
			}
		}
	}
}

func (c *Client) shutdown(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)

		if err := c.conn.Close(reason); err != nil {
			slog.Debug("failed to close client transport", "client", c.ID, "error", err)
		}
	})
}
