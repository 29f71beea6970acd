package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"capyviz/src/aggregators"
	"capyviz/src/config"
	"capyviz/src/datamodels"
	"capyviz/src/ingest"
	"capyviz/src/utils/general"
)

type report struct {
	Path     string                     `json:"path"`
	Entities map[string]int             `json:"entities"`
	Ingest   ingest.IngestStats         `json:"ingest"`
	Summary  *datamodels.DatasetSummary `json:"summary"`
}

// inspect ingests one Capybot log and prints what it contains as JSON.
func main() {
	if len(os.Args) != 2 {
		slog.Error("Usage: inspect <capybot.log | gs://bucket/object>")
		os.Exit(1)
	}
	path := os.Args[1]

	_ = godotenv.Load()
	// config is optional here; defaults and CAPYVIZ_ variables are enough
	capyvizConfig, err := config.Load()
	if err != nil {
		slog.Debug("No config file, using defaults", "error", err)
		if capyvizConfig, err = config.LoadDefaults(); err != nil {
			slog.Error("Failed to load config", "error", err)
			os.Exit(1)
		}
	}

	ingester := ingest.NewLogIngesterBuilder().
		WithClientOptions(general.StorageClientOptions(capyvizConfig.StorageConfig)...).
		Build()
	ds, stats, err := ingester.IngestWithStats(context.Background(), path)
	if err != nil {
		slog.Error("Failed to ingest log", "path", path, "error", err)
		os.Exit(1)
	}

	summary, err := aggregators.SummarizeDataset(ds, capyvizConfig.AnalysisConfig)
	if err != nil {
		slog.Error("Failed to summarize dataset", "error", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report{
		Path:     path,
		Entities: ds.EntityCounts(),
		Ingest:   stats,
		Summary:  summary,
	}); err != nil {
		slog.Error("Failed to write report", "error", err)
		os.Exit(1)
	}
}
