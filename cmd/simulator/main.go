package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "simulator",
	Short: "Climate sensor simulator",
	Long: `The simulator behaves like a sensor board: it posts drifting readings to the
climate server and exposes the fan endpoints the server forwards commands to.`,
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("could not load .env file", "error", err)
	}

	ctx := context.Background()
	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
