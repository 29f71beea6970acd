package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"capyviz/src/config"
	"capyviz/src/ingest"
	"capyviz/src/metrics"
	"capyviz/src/refresher"
	"capyviz/src/server"
	"capyviz/src/utils/general"
	"capyviz/src/version"
)

func main() {
	// a missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load()
	initializeLogging()
	general.ListEnvVars()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	capyvizConfig, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := capyvizConfig.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}
	slog.Info("Ramping up Capyviz", "version", version.Version, "log", capyvizConfig.LogConfig.Path)

	ingester := ingest.NewLogIngesterBuilder().
		WithClientOptions(general.StorageClientOptions(capyvizConfig.StorageConfig)...).
		Build()

	datasetWriter, err := metrics.BuildDatasetWriter(capyvizConfig.MetricsWriter)
	if err != nil {
		slog.Error("Failed to build dataset writer", "error", err)
		os.Exit(1)
	}
	defer datasetWriter.Close()
	wsWriter := datasetWriter.Websocket()
	if wsWriter == nil {
		// the server always accepts viewers, even when pushing is off
		wsWriter = metrics.NewWebsocketDatasetWriter()
	}

	srv := server.NewServer(capyvizConfig.ServerConfig).
		WithWSConfig(config.NewDefaultWSConfig()).
		WithLog(capyvizConfig.LogConfig.Path, ingester).
		WithAnalysisConfig(capyvizConfig.AnalysisConfig).
		WithDatasetWriter(wsWriter)

	if capyvizConfig.RefreshConfig.Enabled {
		liveRefresher, err := refresher.NewRefresherBuilder().
			WithPath(capyvizConfig.LogConfig.Path).
			WithInterval(capyvizConfig.RefreshConfig.Interval).
			WithIngester(ingester).
			WithWriter(datasetWriter).
			Build()
		if err != nil {
			slog.Error("Failed to build refresher", "error", err)
			os.Exit(1)
		}
		srv = srv.WithRefresher(liveRefresher)
		go func() {
			if err := liveRefresher.Run(ctx); err != nil {
				slog.Error("Refresher failed", "error", err)
			}
		}()
	}

	if err := srv.Start(ctx); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Shutting down...")
}

func initializeLogging() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}
	switch strings.ToLower(logLevel) {
	case "debug":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true})))
	case "warn":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelWarn})))
	default:
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})))
	}
}
