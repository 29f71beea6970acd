package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capyviz/src/datamodels"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromConfigPath(t *testing.T) {
	path := writeConfig(t, `
log:
  path: gs://capybot-logs/run-1.log
server:
  port: "9090"
refresh:
  interval: 2500ms
metrics_writer:
  ws_writer: false
  file_writer: true
  file_path: /tmp/capyviz.csv
  file_format: csv
analysis:
  imbalance_delta: 0.1
storage:
  bucket: capybot-logs
  prefix: runs/
`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gs://capybot-logs/run-1.log", cfg.LogConfig.Path)
	assert.Equal(t, "9090", cfg.ServerConfig.Port)
	assert.Equal(t, "/dataset", cfg.ServerConfig.DatasetEndpoint)
	assert.True(t, cfg.RefreshConfig.Enabled)
	assert.Equal(t, 2500*time.Millisecond, cfg.RefreshConfig.Interval)
	require.NotNil(t, cfg.MetricsWriter)
	assert.False(t, cfg.MetricsWriter.WsWriter)
	assert.True(t, cfg.MetricsWriter.FileWriter)
	assert.Equal(t, datamodels.FormatCSV, cfg.MetricsWriter.FileFormat)
	assert.Equal(t, 0.1, cfg.AnalysisConfig.ImbalanceDelta)
	assert.Equal(t, datamodels.DefaultArbitrageLimit, cfg.AnalysisConfig.ArbitrageLimit)
	assert.Equal(t, "capybot-logs", cfg.StorageConfig.Bucket)
	assert.Equal(t, "runs/", cfg.StorageConfig.Prefix)
	assert.NoError(t, cfg.Validate())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  path: /var/log/capybot.log\n")
	t.Setenv("CAPYVIZ_LOG_PATH", "/srv/capybot.log")
	t.Setenv("CAPYVIZ_SERVER_PORT", "7070")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/capybot.log", cfg.LogConfig.Path)
	assert.Equal(t, "7070", cfg.ServerConfig.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadDefaults()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerConfig.Port)
	assert.Equal(t, "/health", cfg.ServerConfig.HealthEndpoint)
	assert.Equal(t, "/ws", cfg.ServerConfig.WsEndpoint)
	assert.Equal(t, time.Second, cfg.RefreshConfig.Interval)
	assert.Equal(t, datamodels.NewDefaultAnalysisConfig(), cfg.AnalysisConfig)

	// no log path yet
	assert.Error(t, cfg.Validate())
	cfg.LogConfig.Path = "capybot.log"
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *datamodels.CapyvizConfig {
		cfg, err := LoadDefaults()
		require.NoError(t, err)
		cfg.LogConfig.Path = "capybot.log"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(cfg *datamodels.CapyvizConfig)
	}{
		{"no port", func(cfg *datamodels.CapyvizConfig) { cfg.ServerConfig.Port = "" }},
		{"zero interval", func(cfg *datamodels.CapyvizConfig) { cfg.RefreshConfig.Interval = 0 }},
		{"file writer without path", func(cfg *datamodels.CapyvizConfig) { cfg.MetricsWriter.FileWriter = true }},
		{"bad file format", func(cfg *datamodels.CapyvizConfig) {
			cfg.MetricsWriter.FileWriter = true
			cfg.MetricsWriter.FilePath = "out.parquet"
			cfg.MetricsWriter.FileFormat = "parquet"
		}},
		{"delta of one", func(cfg *datamodels.CapyvizConfig) { cfg.AnalysisConfig.ImbalanceDelta = 1 }},
		{"negative limit", func(cfg *datamodels.CapyvizConfig) { cfg.AnalysisConfig.ArbitrageLimit = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
