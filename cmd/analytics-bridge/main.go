// Command analytics-bridge serves the PostHog analytics command bridge on a
// local HTTP port.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"kongflow/analytics-bridge/internal/bridge"
	"kongflow/analytics-bridge/internal/config"
	"kongflow/analytics-bridge/internal/logger"
	"kongflow/analytics-bridge/internal/server"
	"kongflow/analytics-bridge/internal/services/analytics"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logger.New("main").Errorf("failed to load configuration: %v", err)
		return 1
	}

	root := logger.NewWithLevel("analytics-bridge", cfg.Logging.Level, os.Stderr)

	svc, err := analytics.NewClientWrapper(cfg.PostHog, analytics.WithLogger(root.Named("analytics")))
	if err != nil {
		root.Errorf("failed to start analytics: %v", err)
		return 1
	}
	defer func() {
		if err := svc.Close(); err != nil {
			root.Warnf("analytics close: %v", err)
		}
	}()

	root.Infof("device id %s", svc.DeviceID())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server, bridge.New(svc, root.Named("bridge")), root.Named("server"))
	if err := srv.Run(ctx); err != nil {
		root.Errorf("server error: %v", err)
		return 1
	}
	return 0
}
