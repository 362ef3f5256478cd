package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/KyleBrandon/climate-server/internal/hub"
	"github.com/KyleBrandon/climate-server/internal/readings"
)

// ParseCommand decodes a viewer message.
func ParseCommand(raw []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return cmd, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}

	switch cmd.Type {
	case COMMANDTYPE_REQUEST_DATA:
		return cmd, nil

	case COMMANDTYPE_FAN_CONTROL:
		switch cmd.Value {
		case FANCOMMAND_ON, FANCOMMAND_OFF, FANCOMMAND_AUTO:
			return cmd, nil
		}
		return cmd, fmt.Errorf("%w: %q", ErrInvalidFanCommand, cmd.Value)
	}

	return cmd, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
}

// HandleCommand routes a raw viewer message. Errors are reported to the
// caller only; nothing is sent back to the viewer on failure.
func (mctx *MonitorContext) HandleCommand(c *hub.Client, raw []byte) error {
	mctx.hub.Touch(c)

	cmd, err := ParseCommand(raw)
	if err != nil {
		return err
	}

	switch cmd.Type {
	case COMMANDTYPE_REQUEST_DATA:
		return mctx.SendHistory(c)

	case COMMANDTYPE_FAN_CONTROL:
		_, err := mctx.ApplyFanControl(cmd.Value)
		return err
	}

	return nil
}

// ApplyFanControl overwrites the actuator fields of the latest reading and
// broadcasts the full reading as a command response.
func (mctx *MonitorContext) ApplyFanControl(value FanCommand) (readings.Reading, error) {
	slog.Debug(">>ApplyFanControl", "value", value)
	defer slog.Debug("<<ApplyFanControl")

	mctx.Lock()
	defer mctx.Unlock()

	var fanState readings.FanState
	switch value {
	case FANCOMMAND_AUTO:
	case FANCOMMAND_ON:
		fanState = readings.FANSTATE_ON
	case FANCOMMAND_OFF:
		fanState = readings.FANSTATE_OFF
	default:
		return readings.Reading{}, fmt.Errorf("%w: %q", ErrInvalidFanCommand, value)
	}

	updated, ok := mctx.store.UpdateLatest(func(r *readings.Reading) {
		if value == FANCOMMAND_AUTO {
			r.AutoControl = true
			return
		}

		r.AutoControl = false
		r.FanState = fanState
	})
	if !ok {
		return readings.Reading{}, ErrEmptyStore
	}

	msg, err := json.Marshal(UpdateMessage{Type: MESSAGETYPE_UPDATE, CommandResponse: true, Reading: updated})
	if err != nil {
		return updated, fmt.Errorf("failed to encode command response: %w", err)
	}

	mctx.hub.Broadcast(msg)
	mctx.forwardToDevice(value)

	return updated, nil
}

// forwardToDevice queues the command for the device, dropping the oldest
// pending command when the queue is full.
func (mctx *MonitorContext) forwardToDevice(value FanCommand) {
	if mctx.Device.controller == nil {
		return
	}

	task := DeviceTask{Command: value}
	for {
		select {
		case mctx.Device.DeviceCh <- task:
			return
		default:
		}

		select {
		case dropped := <-mctx.Device.DeviceCh:
			slog.Warn("device command queue full, dropping command", "command", dropped.Command)
		default:
		}
	}
}
