// Package main is the entrypoint for the SCA agent daemon. It loads
// configuration, wires the scan engine, and runs until a shutdown signal
// arrives.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kubecomply/scaagent/internal/config"
	"github.com/kubecomply/scaagent/internal/engine"
)

// Build-time variables set by ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		configPath  string
		metricsAddr string
	)

	flag.StringVar(&configPath, "config", "/etc/sca/sca.yaml", "Path to the agent configuration file.")
	flag.StringVar(&metricsAddr, "metrics-bind-address", ":9090", "The address the metrics endpoint binds to.")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting SCA agent",
		"version", version,
		"gitCommit", gitCommit,
		"buildDate", buildDate,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("unable to load configuration", "error", err)
		os.Exit(1)
	}
	if !cfg.Enabled {
		logger.Info("SCA agent disabled in configuration, exiting")
		return
	}

	eng := engine.New(cfg, logger)

	if err := config.Watch(configPath, logger, func(*config.Config) {
		logger.Warn("configuration changed on disk; restart the agent to apply it")
	}); err != nil {
		logger.Warn("configuration hot-reload disabled", "error", err)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("metrics server exited", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("engine exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("SCA agent stopped")
}
