// Command imagekit serves the image transform HTTP API.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/leeforge/imagekit/config"
	"github.com/leeforge/imagekit/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "imagekit:", err)
		os.Exit(1)
	}
}

func run() error {
	loader, err := config.NewConfig()
	if err != nil {
		return err
	}
	var cfg AppConfig
	if err := loader.BindWithDefaults(&cfg); err != nil {
		return err
	}

	logger := logging.Init(cfg.Logging)
	defer func() { _ = logging.Sync() }()
	logger.Info("config.loaded",
		zap.String("mode", string(config.CurrentMode())),
		zap.Strings("files", loader.Files()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		_ = a.close(context.Background())
		return err
	}
	return a.serve(ctx, ln)
}
