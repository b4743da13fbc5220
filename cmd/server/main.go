// Command server runs the SheetDrop HTTP API.
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
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	app.SetupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunServer(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("server stopped")
		stop()
		os.Exit(1)
	}
}
