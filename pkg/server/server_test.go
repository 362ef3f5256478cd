package server

import (
	"testing"
	"time"

	"github.com/KyleBrandon/climate-server/config"
)

func TestMonitorConfig(t *testing.T) {
	sc := ServerConfig{Settings: config.DefaultConfig()}
	sc.Settings.DeviceSilenceMinutes = 2

	mc := sc.monitorConfig()
	if mc.HeartbeatInterval != 30*time.Second {
		t.Errorf("unexpected monitor config %+v", mc)
	}

	if mc.DeviceSilence != 2*time.Minute {
		t.Errorf("expected 2m silence window, got %v", mc.DeviceSilence)
	}

	if mc.Hub.SendQueueSize != 16 || mc.Hub.PingTimeout != 30*time.Second || mc.Hub.WriteTimeout != 10*time.Second {
		t.Errorf("unexpected hub config %+v", mc.Hub)
	}
}

func TestOptionalServices(t *testing.T) {
	sc := ServerConfig{}

	if sc.deviceController() != nil {
		t.Errorf("expected no device controller without DEVICE_URL")
	}

	if sc.notifier() != nil {
		t.Errorf("expected no notifier without a Twilio account")
	}

	t.Setenv("DEVICE_URL", "http://127.0.0.1:1")
	sc.readEnvironmentVariables()
	sc.configureDevice()

	if sc.deviceController() == nil {
		t.Errorf("expected a device controller when DEVICE_URL is set")
	}
}
