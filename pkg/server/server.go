package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KyleBrandon/climate-server/config"
	"github.com/KyleBrandon/climate-server/internal/device"
	"github.com/KyleBrandon/climate-server/internal/hub"
	"github.com/KyleBrandon/climate-server/pkg/server/health"
	"github.com/KyleBrandon/climate-server/pkg/server/monitor"
	"github.com/KyleBrandon/climate-server/pkg/server/stream"
	"github.com/KyleBrandon/climate-server/pkg/server/temperatures"
	"github.com/KyleBrandon/climate-server/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/nikoksr/notify"
	"github.com/nikoksr/notify/service/twilio"
	"github.com/rs/cors"
)

const (
	DEFAULT_SERVER_PORT          = "3000"
	DEFAULT_CONFIG_FILE_LOCATION = "./config/config.json"
	SHUTDOWN_TIMEOUT             = 10 * time.Second
)

// Used by "flag" to read command line argument
var (
	cmdLineFlagLogLevel string
)

type ServerConfig struct {
	mux                *http.ServeMux
	mctx               *monitor.MonitorContext
	ServerPort         string
	DeviceURL          string
	LogFileLocation    string
	ConfigFileLocation string
	Logger             *slog.Logger
	LoggerLevel        *slog.LevelVar
	LogFile            *os.File
	Notifier           *notify.Notify
	Device             *device.Client
	Settings           config.Config
}

// init will read and initialize the global command line variables
func init() {
	flag.StringVar(&cmdLineFlagLogLevel, "log_level", config.DefaultLogLevel.String(), "The log level to start the server at")
}

// InitializeServer to start working
func InitializeServer() error {
	slog.Debug(">>InitializeServer")
	defer slog.Debug("<<InitializeServer")

	config, err := initializeServerConfig()
	if err != nil {
		return err
	}

	if config.LogFile != os.Stderr {
		defer config.LogFile.Close()
	}

	config.mux = http.NewServeMux()

	config.mctx = monitor.InitializeMonitorContext(config.monitorConfig(), config.deviceController(), config.notifier())

	healthHandler := health.NewHandler(config.LoggerLevel, config.Logger, config.mctx)
	healthHandler.RegisterRoutes(config.mux)

	temperatureHandler := temperatures.NewHandler(config.mctx)
	temperatureHandler.RegisterRoutes(config.mux)

	streamHandler := stream.NewHandler(config.mctx, config.Settings.OriginPatterns)
	streamHandler.RegisterRoutes(config.mux)

	// start the server
	return config.runServer()
}

// runServer will start listening for connections and stop on SIGINT or SIGTERM
func (config *ServerConfig) runServer() error {
	slog.Info(">>runServer")
	defer slog.Info("<<runServer")

	c := cors.New(cors.Options{
		AllowedOrigins: config.Settings.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Content-Type"},
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.ServerPort),
		Handler: c.Handler(config.mux),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", config.ServerPort)
		errCh <- server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errCh:
		slog.Error("Server failed", "error", err)
	case <-ctx.Done():
		slog.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()

		// hijacked websocket connections are closed by the monitor below
		err = server.Shutdown(shutdownCtx)
		if err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}

	config.mctx.CancelAndWait()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func initializeServerConfig() (ServerConfig, error) {
	slog.Info(">>initalizeServerConfig")
	defer slog.Info("<<initalizeServerConfig")

	sc := ServerConfig{}

	// MUST BE FIRST
	sc.readEnvironmentVariables()

	// configure slog
	if err := sc.configureLogger(); err != nil {
		return sc, err
	}

	// load the configuration file and environment settings
	settings, err := config.LoadConfigSettings(sc.ConfigFileLocation)
	if err != nil {
		slog.Error("failed to load config file", "file", sc.ConfigFileLocation, "error", err)
		return sc, err
	}

	sc.Settings = settings

	if err := sc.configureNotifier(); err != nil {
		return sc, err
	}

	sc.configureDevice()

	return sc, nil
}

func (sc *ServerConfig) readEnvironmentVariables() {
	slog.Info(">>readEnvironmentVariables")
	defer slog.Info("<<readEnvironmentVariables")

	// load the environment
	err := godotenv.Load()
	if err != nil {
		slog.Warn("could not load .env file", "error", err)
	}

	sc.ServerPort = os.Getenv("PORT")
	if len(sc.ServerPort) == 0 {
		sc.ServerPort = DEFAULT_SERVER_PORT
	}

	sc.LogFileLocation = os.Getenv("LOG_FILE_LOCATION")

	sc.ConfigFileLocation = os.Getenv("CONFIG_FILE_LOCATION")
	if len(sc.ConfigFileLocation) == 0 {
		sc.ConfigFileLocation = DEFAULT_CONFIG_FILE_LOCATION
	}

	sc.DeviceURL = os.Getenv("DEVICE_URL")
}

// configureLogger will initialize the slog to stderr and save the log level so it can be set via API.
func (sc *ServerConfig) configureLogger() error {
	slog.Info(">>configureLogger")
	defer slog.Info("<<configureLogger")

	currentLevel := new(slog.LevelVar)

	// parse the log level from any passed in command line flag
	level, err := utils.ParseLogLevel(cmdLineFlagLogLevel)
	if err != nil {
		slog.Error("Failed to parse the log level, setting to DefaultLogLevel", "error", err, "log_level", cmdLineFlagLogLevel)
		level = config.DefaultLogLevel
	}

	currentLevel.Set(level)

	// by default we will write to stderr
	logFile := os.Stderr
	if len(sc.LogFileLocation) != 0 {
		slog.Info("Save to log file", "file", sc.LogFileLocation)
		logFile, err = os.OpenFile(sc.LogFileLocation, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			slog.Error("Failed to open log file", "error", err)
			return err
		}
	}

	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: currentLevel}))

	slog.SetDefault(logger)

	sc.Logger = logger
	sc.LoggerLevel = currentLevel
	sc.LogFile = logFile

	return nil
}

// configureNotifier sets up SMS alerts when a Twilio account is present.
func (sc *ServerConfig) configureNotifier() error {
	twilioAccountSID := os.Getenv("TWILIO_ACCOUNT_SID")
	twilioAuthToken := os.Getenv("TWILIO_AUTH_TOKEN")
	twilioFromPhone := os.Getenv("TWILIO_FROM_PHONE_NO")
	twilioToPhone := os.Getenv("TWILIO_TO_PHONE_NO")
	if len(twilioAccountSID) == 0 {
		slog.Info("no Twilio account configured, device alerts will only be logged")
		return nil
	}

	slog.Info("Twilio account information present, configuring Notifier")

	twilioService, err := twilio.New(twilioAccountSID, twilioAuthToken, twilioFromPhone)
	if err != nil {
		slog.Error("failed to initialize Twilio service", "error", err)
		return err
	}

	twilioService.AddReceivers(twilioToPhone)

	notifier := notify.New()
	notifier.UseServices(twilioService)
	sc.Notifier = notifier

	return nil
}

// configureDevice creates the fan command client when the device address is known.
func (sc *ServerConfig) configureDevice() {
	if len(sc.DeviceURL) == 0 {
		slog.Info("no DEVICE_URL configured, fan commands stay on the server")
		return
	}

	sc.Device = device.NewClient(sc.DeviceURL, monitor.DEFAULT_DEVICE_TIMEOUT)

	ctx, cancel := context.WithTimeout(context.Background(), monitor.DEFAULT_DEVICE_TIMEOUT)
	defer cancel()

	state, err := sc.Device.FanState(ctx)
	if err != nil {
		slog.Warn("device is not reachable yet", "url", sc.DeviceURL, "error", err)
		return
	}

	slog.Info("device reachable", "url", sc.DeviceURL, "fan_state", state)
}

func (sc *ServerConfig) monitorConfig() monitor.Config {
	return monitor.Config{
		HeartbeatInterval: sc.Settings.HeartbeatInterval(),
		DeviceSilence:     sc.Settings.DeviceSilence(),
		DeviceTimeout:     monitor.DEFAULT_DEVICE_TIMEOUT,
		Hub: hub.Config{
			SendQueueSize: sc.Settings.SendQueueSize,
			WriteTimeout:  sc.Settings.WriteTimeout(),
			PingTimeout:   sc.Settings.PingTimeout(),
		},
	}
}

// deviceController keeps a nil client from turning into a non-nil interface.
func (sc *ServerConfig) deviceController() monitor.DeviceController {
	if sc.Device == nil {
		return nil
	}

	return sc.Device
}

func (sc *ServerConfig) notifier() monitor.Notifier {
	if sc.Notifier == nil {
		return nil
	}

	return sc.Notifier
}
