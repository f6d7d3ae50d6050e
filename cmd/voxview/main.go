// Package main is the entry point for the Midgard voxel viewer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vox/internal/app"
	"github.com/Faultbox/midgard-vox/internal/config"
	"github.com/Faultbox/midgard-vox/internal/floor"
	"github.com/Faultbox/midgard-vox/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Midgard Vox Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	session, err := app.NewSession(cfg, reg)
	if err != nil {
		return err
	}
	defer session.Close()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := floor.Serve(cfg.Metrics.Addr, reg); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if cfg.Persistence.LoadPath != "" {
		if err := session.Floor.LoadFile(cfg.Persistence.LoadPath); err != nil {
			return err
		}
	} else {
		session.Populate()
	}

	viewer, err := app.NewViewer(cfg, session)
	if err != nil {
		return err
	}
	defer viewer.Close()

	return viewer.Run(ctx)
}
