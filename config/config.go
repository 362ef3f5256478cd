package config

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

const DefaultLogLevel = slog.LevelInfo

const (
	DEFAULT_HEARTBEAT_INTERVAL_SECONDS = 30
	DEFAULT_PING_TIMEOUT_SECONDS       = DEFAULT_HEARTBEAT_INTERVAL_SECONDS
	DEFAULT_WRITE_TIMEOUT_SECONDS      = 10
	DEFAULT_SEND_QUEUE_SIZE            = 16
)

type Config struct {
	OriginPatterns           []string `json:"origin_patterns"`
	CORSAllowedOrigins       []string `json:"cors_allowed_origins"`
	HeartbeatIntervalSeconds int      `json:"heartbeat_interval_seconds"`
	PingTimeoutSeconds       int      `json:"ping_timeout_seconds"`
	WriteTimeoutSeconds      int      `json:"write_timeout_seconds"`
	SendQueueSize            int      `json:"send_queue_size"`
	DeviceSilenceMinutes     int      `json:"device_silence_minutes"`
}

// DefaultConfig is what the server runs with when no settings file exists.
func DefaultConfig() Config {
	return Config{
		CORSAllowedOrigins:       []string{"*"},
		HeartbeatIntervalSeconds: DEFAULT_HEARTBEAT_INTERVAL_SECONDS,
		PingTimeoutSeconds:       DEFAULT_PING_TIMEOUT_SECONDS,
		WriteTimeoutSeconds:      DEFAULT_WRITE_TIMEOUT_SECONDS,
		SendQueueSize:            DEFAULT_SEND_QUEUE_SIZE,
	}
}

func LoadConfigSettings(filename string) (Config, error) {
	config := DefaultConfig()
	file, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "file", filename)
		return config, nil
	}
	if err != nil {
		return config, err
	}

	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return config, err
	}

	err = json.Unmarshal(bytes, &config)
	if err != nil {
		return config, err
	}

	config.applyDefaults()

	return config, nil
}

// applyDefaults replaces zero or negative settings, except the silence window where zero disables the watchdog.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = defaults.CORSAllowedOrigins
	}
	if c.HeartbeatIntervalSeconds <= 0 {
		c.HeartbeatIntervalSeconds = defaults.HeartbeatIntervalSeconds
	}
	// a pong is only counted while its sweep waits, so the wait may not outlast the interval
	if c.PingTimeoutSeconds <= 0 || c.PingTimeoutSeconds > c.HeartbeatIntervalSeconds {
		c.PingTimeoutSeconds = c.HeartbeatIntervalSeconds
	}
	if c.WriteTimeoutSeconds <= 0 {
		c.WriteTimeoutSeconds = defaults.WriteTimeoutSeconds
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = defaults.SendQueueSize
	}
	if c.DeviceSilenceMinutes < 0 {
		c.DeviceSilenceMinutes = 0
	}
}

func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSeconds) * time.Second
}

func (c Config) PingTimeout() time.Duration {
	return time.Duration(c.PingTimeoutSeconds) * time.Second
}

func (c Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func (c Config) DeviceSilence() time.Duration {
	return time.Duration(c.DeviceSilenceMinutes) * time.Minute
}
