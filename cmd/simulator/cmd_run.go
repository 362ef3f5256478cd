package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KyleBrandon/climate-server/internal/simulator"
	"github.com/spf13/cobra"
)

const DEFAULT_SERVER_URL = "http://localhost:3000"

var (
	runServerURL  string
	runListenAddr string
	runInterval   time.Duration
	runCount      int
	runThreshold  float64
	runSeed       int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Post simulated readings to the server",
	Long: `Post a reading every interval and serve GET/POST /api/fan so the server can
forward fan commands. In auto mode the fan follows the temperature threshold.`,
	RunE: runSimulator,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runServerURL, "url", "", "climate server base URL (default $SERVER_URL or "+DEFAULT_SERVER_URL+")")
	runCmd.Flags().StringVar(&runListenAddr, "listen", ":3001", "address for the fan endpoints, empty to disable")
	runCmd.Flags().DurationVar(&runInterval, "interval", 5*time.Second, "time between readings")
	runCmd.Flags().IntVar(&runCount, "count", 0, "number of readings to send, 0 runs until interrupted")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", simulator.DEFAULT_THRESHOLD_C, "auto mode fan threshold in Celsius")
	runCmd.Flags().Int64Var(&runSeed, "seed", time.Now().UnixNano(), "random seed for the drift")
}

func runSimulator(cmd *cobra.Command, args []string) error {
	if runInterval <= 0 {
		return fmt.Errorf("invalid interval: %v", runInterval)
	}

	if len(runServerURL) == 0 {
		runServerURL = os.Getenv("SERVER_URL")
	}
	if len(runServerURL) == 0 {
		runServerURL = DEFAULT_SERVER_URL
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	device := simulator.NewDevice(runThreshold, runSeed)
	poster := simulator.NewPoster(runServerURL, runInterval)

	if len(runListenAddr) != 0 {
		mux := http.NewServeMux()
		device.RegisterRoutes(mux)

		server := &http.Server{Addr: runListenAddr, Handler: mux}
		go func() {
			slog.Info("serving fan endpoints", "addr", runListenAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("fan endpoint server failed", "error", err)
			}
		}()

		defer server.Shutdown(context.Background())
	}

	slog.Info("starting simulation", "url", runServerURL, "interval", runInterval)

	ticker := time.NewTicker(runInterval)
	defer ticker.Stop()

	sent := 0
	for {
		r := device.Step(time.Now())
		if err := poster.Post(ctx, r); err != nil {
			slog.Warn("failed to send reading", "error", err)
		} else {
			slog.Info("sent reading", "temperature", r.Temperature, "fan_state", r.FanState, "auto_control", r.AutoControl)
		}

		sent++
		if runCount > 0 && sent >= runCount {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
