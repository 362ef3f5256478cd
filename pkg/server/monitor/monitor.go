package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KyleBrandon/climate-server/internal/hub"
	"github.com/KyleBrandon/climate-server/internal/readings"
)

// InitializeMonitorContext creates the monitor and starts its background routines.
// device and notifier are optional.
func InitializeMonitorContext(config Config, device DeviceController, notifier Notifier) *MonitorContext {
	slog.Debug(">>InitializeMonitorContext")
	defer slog.Debug("<<InitializeMonitorContext")

	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = DEFAULT_HEARTBEAT_INTERVAL
	}

	if config.Hub.PingTimeout <= 0 || config.Hub.PingTimeout > config.HeartbeatInterval {
		config.Hub.PingTimeout = config.HeartbeatInterval
	}

	if config.SilenceCheckInterval <= 0 {
		config.SilenceCheckInterval = DEFAULT_SILENCE_CHECK_INTERVAL
	}

	if config.DeviceTimeout <= 0 {
		config.DeviceTimeout = DEFAULT_DEVICE_TIMEOUT
	}

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	mctx := MonitorContext{
		wg:                &wg,
		ctx:               ctx,
		monitorCancelFunc: cancel,
		config:            config,
		now:               time.Now,
		store:             readings.NewStore(readings.DEFAULT_HISTORY_SIZE),
		hub:               hub.NewHub(config.Hub),
	}

	mctx.Device.DeviceCh = make(chan DeviceTask, DEVICE_QUEUE_SIZE)
	mctx.Device.controller = device
	mctx.Notification.NotifyCh = make(chan NotificationTask)
	mctx.Notification.notifier = notifier

	mctx.startMonitorRoutines()

	return &mctx
}

// CancelAndWait stops the monitor routines and disconnects every client.
func (mctx *MonitorContext) CancelAndWait() {
	mctx.monitorCancelFunc()
	mctx.wg.Wait()
	mctx.hub.Close()
}

func (mctx *MonitorContext) startMonitorRoutines() {
	mctx.wg.Add(1)
	go mctx.monitorNotifications()

	mctx.wg.Add(1)
	go mctx.monitorHeartbeats()

	if mctx.Device.controller != nil {
		mctx.wg.Add(1)
		go mctx.monitorDeviceCommands()
	}

	if mctx.config.DeviceSilence > 0 {
		mctx.wg.Add(1)
		go mctx.monitorDeviceSilence()
	}
}

// IngestReading stores a device reading and broadcasts it to every client.
// When autoControl is nil the reading keeps the current auto-control mode.
// In manual mode a reading without a fan state keeps the commanded one.
func (mctx *MonitorContext) IngestReading(r readings.Reading, autoControl *bool) (readings.Reading, error) {
	if err := r.Validate(); err != nil {
		return r, err
	}

	mctx.Lock()
	defer mctx.Unlock()

	now := mctx.now().UTC()
	if r.Timestamp == 0 {
		r.Timestamp = now.UnixMilli()
	}

	if autoControl != nil {
		r.AutoControl = *autoControl
	} else {
		r.AutoControl = mctx.store.Actuator().AutoControl
	}

	if r.FanState == "" && !r.AutoControl {
		if latest, ok := mctx.store.Latest(); ok {
			r.FanState = latest.FanState
		}
	}

	msg, err := json.Marshal(UpdateMessage{Type: MESSAGETYPE_UPDATE, Reading: r})
	if err != nil {
		return r, fmt.Errorf("failed to encode reading update: %w", err)
	}

	mctx.store.Append(r)
	mctx.lastIngestAt = now

	delivered := mctx.hub.Broadcast(msg)
	slog.Debug("reading broadcast", "temperature", r.Temperature, "clients", delivered)

	return r, nil
}

// Connect registers a viewer. The viewer receives the history before any update.
func (mctx *MonitorContext) Connect(conn hub.Conn) (*hub.Client, error) {
	mctx.Lock()
	defer mctx.Unlock()

	msg, err := mctx.encodeHistory()
	if err != nil {
		return nil, err
	}

	return mctx.hub.Register(conn, msg), nil
}

func (mctx *MonitorContext) Disconnect(c *hub.Client) {
	mctx.hub.Unregister(c, "client disconnected")
}

// SendHistory queues the current history for a single client.
func (mctx *MonitorContext) SendHistory(c *hub.Client) error {
	mctx.Lock()
	defer mctx.Unlock()

	msg, err := mctx.encodeHistory()
	if err != nil {
		return err
	}

	return mctx.hub.SendTo(c, msg)
}

func (mctx *MonitorContext) History() []readings.Reading {
	return mctx.store.Snapshot()
}

func (mctx *MonitorContext) Actuator() readings.ActuatorState {
	return mctx.store.Actuator()
}

func (mctx *MonitorContext) Status() Status {
	mctx.Lock()
	defer mctx.Unlock()

	status := Status{
		Clients:      mctx.hub.Len(),
		Readings:     mctx.store.Len(),
		DeviceSilent: mctx.deviceSilent,
		Actuator:     mctx.store.Actuator(),
	}

	if !mctx.lastIngestAt.IsZero() {
		lastIngestAt := mctx.lastIngestAt
		status.LastReadingAt = &lastIngestAt
	}

	return status
}

func (mctx *MonitorContext) encodeHistory() ([]byte, error) {
	msg, err := json.Marshal(HistoryMessage{Type: MESSAGETYPE_HISTORY, Data: mctx.store.Snapshot()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}

	return msg, nil
}

func (mctx *MonitorContext) monitorHeartbeats() {
	slog.Debug(">>monitorHeartbeats")
	defer slog.Debug("<<monitorHeartbeats")

	defer mctx.wg.Done()

	ticker := time.NewTicker(mctx.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-mctx.ctx.Done():
			slog.Debug("monitorHeartbeats: context done")
			return

		case <-ticker.C:
			mctx.hub.Sweep(mctx.ctx)
		}
	}
}

func (mctx *MonitorContext) monitorDeviceCommands() {
	slog.Debug(">>monitorDeviceCommands")
	defer slog.Debug("<<monitorDeviceCommands")

	defer mctx.wg.Done()

	for {
		select {
		case <-mctx.ctx.Done():
			slog.Debug("monitorDeviceCommands: context done")
			return

		case task, ok := <-mctx.Device.DeviceCh:
			if !ok {
				slog.Error("The device command channel was closed")
				return
			}

			ctx, cancel := context.WithTimeout(mctx.ctx, mctx.config.DeviceTimeout)
			err := mctx.Device.controller.SetFan(ctx, string(task.Command))
			cancel()
			if err != nil {
				slog.Error("failed to forward fan command to the device", "command", task.Command, "error", err)
			}
		}
	}
}

func (mctx *MonitorContext) monitorDeviceSilence() {
	slog.Debug(">>monitorDeviceSilence")
	defer slog.Debug("<<monitorDeviceSilence")

	defer mctx.wg.Done()

	ticker := time.NewTicker(mctx.config.SilenceCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-mctx.ctx.Done():
			slog.Debug("monitorDeviceSilence: context done")
			return

		case <-ticker.C:
			if message, changed := mctx.checkDeviceSilence(); changed {
				mctx.notify(message)
			}
		}
	}
}

// checkDeviceSilence updates the silent flag and reports whether it changed.
func (mctx *MonitorContext) checkDeviceSilence() (string, bool) {
	mctx.Lock()
	defer mctx.Unlock()

	// nothing to compare against until the device reports once
	if mctx.lastIngestAt.IsZero() {
		return "", false
	}

	silentFor := mctx.now().UTC().Sub(mctx.lastIngestAt)
	silent := silentFor > mctx.config.DeviceSilence
	if silent == mctx.deviceSilent {
		return "", false
	}

	mctx.deviceSilent = silent
	if silent {
		slog.Warn("device stopped reporting", "silent_for", silentFor)
		return fmt.Sprintf("No reading received from the device for %v", silentFor.Round(time.Second)), true
	}

	slog.Info("device is reporting again")
	return "The device is reporting readings again", true
}

func (mctx *MonitorContext) notify(message string) {
	select {
	case mctx.Notification.NotifyCh <- NotificationTask{Message: message}:
	case <-mctx.ctx.Done():
	}
}

func (mctx *MonitorContext) monitorNotifications() {
	slog.Debug(">>monitorNotifications")
	defer slog.Debug("<<monitorNotifications")

	defer mctx.wg.Done()
	for {
		select {
		case <-mctx.ctx.Done():
			slog.Debug("monitorNotifications: context done")
			return

		case task, ok := <-mctx.Notification.NotifyCh:
			if !ok {
				slog.Error("The notification channel was closed")
				return
			}

			if mctx.Notification.notifier == nil {
				slog.Warn("Notifier is not registered for notifications", "message", task.Message)
				continue
			}

			err := mctx.Notification.notifier.Send(mctx.ctx, "Climate Notification", task.Message)
			if err != nil {
				slog.Error("failed to send message", "error", err, "message", task.Message)
			}
		}
	}
}
