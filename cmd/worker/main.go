// Command worker consumes dataset analysis jobs from Redis.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/SheetDrop/internal/app"
	"github.com/dharsanguruparan/SheetDrop/internal/config"
	"github.com/dharsanguruparan/SheetDrop/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	app.SetupLogging(cfg)

	if err := app.RunWorker(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("worker stopped")
		stop()
		os.Exit(1)
	}
}
