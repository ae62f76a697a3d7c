// Command journal is the trading journal analytics CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"trading-journal/internal/cli"
	"trading-journal/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLogger()
	app := cli.NewApp(logger)
	rootCmd := cli.NewRootCmd(app)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		rootCmd.PrintErrln("Error:", err)
		stop()
		os.Exit(1)
	}
}
