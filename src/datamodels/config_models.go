package datamodels

import (
	"time"

	"github.com/gorilla/websocket"

	"capyviz/src/utils/errors"
)

type CapyvizConfig struct {
	LogConfig      LogConfig            `mapstructure:"log"`
	ServerConfig   ServerConfig         `mapstructure:"server"`
	RefreshConfig  RefreshConfig        `mapstructure:"refresh"`
	MetricsWriter  *MetricsWriterConfig `mapstructure:"metrics_writer"`
	AnalysisConfig AnalysisConfig       `mapstructure:"analysis"`
	StorageConfig  StorageConfig        `mapstructure:"storage"`
}

// LogConfig points at the Capybot log to ingest. Path is either a local
// file or a gs://bucket/object URI.
type LogConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Port            string `mapstructure:"port"`
	HealthEndpoint  string `mapstructure:"health_endpoint"`
	DatasetEndpoint string `mapstructure:"dataset_endpoint"`
	SummaryEndpoint string `mapstructure:"summary_endpoint"`
	WsEndpoint      string `mapstructure:"ws_endpoint"`
}

type WSConfig struct {
	Upgrader websocket.Upgrader
}

type RefreshConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type StorageConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	// optional, for storage emulators
	Endpoint string `mapstructure:"endpoint"`
}

type MetricsWriterConfig struct {
	WsWriter   bool       `mapstructure:"ws_writer"`
	FileWriter bool       `mapstructure:"file_writer"`
	FilePath   string     `mapstructure:"file_path"`
	FileFormat FileFormat `mapstructure:"file_format"`
}

type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatJSON FileFormat = "json"
)

// AnalysisConfig holds the reference levels Capybot charts draw
// as horizontal lines.
type AnalysisConfig struct {
	// imbalance ratios outside [1-delta, 1+delta] count as out of band
	ImbalanceDelta float64 `mapstructure:"imbalance_delta" json:"imbalance_delta"`
	// relative arbitrage potential above which a trade is considered
	ArbitrageLimit float64 `mapstructure:"arbitrage_limit" json:"arbitrage_limit"`
}

const (
	DefaultImbalanceDelta = 0.25
	DefaultArbitrageLimit = 1.0005
)

func NewDefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		ImbalanceDelta: DefaultImbalanceDelta,
		ArbitrageLimit: DefaultArbitrageLimit,
	}
}

func (c *CapyvizConfig) Validate() error {
	if c.LogConfig.Path == "" {
		return errors.New("log.path is required")
	}
	if c.ServerConfig.Port == "" {
		return errors.New("server.port is required")
	}
	if c.RefreshConfig.Enabled && c.RefreshConfig.Interval <= 0 {
		return errors.Newf("refresh.interval must be > 0, got %s", c.RefreshConfig.Interval)
	}
	if c.MetricsWriter != nil && c.MetricsWriter.FileWriter {
		if c.MetricsWriter.FilePath == "" {
			return errors.New("metrics_writer.file_path is required when file_writer is set")
		}
		switch c.MetricsWriter.FileFormat {
		case FormatCSV, FormatJSON:
		default:
			return errors.Newf("metrics_writer.file_format must be csv or json, got %q", c.MetricsWriter.FileFormat)
		}
	}
	if c.AnalysisConfig.ImbalanceDelta < 0 || c.AnalysisConfig.ImbalanceDelta >= 1 {
		return errors.Newf("analysis.imbalance_delta must be in [0, 1), got %v", c.AnalysisConfig.ImbalanceDelta)
	}
	if c.AnalysisConfig.ArbitrageLimit <= 0 {
		return errors.Newf("analysis.arbitrage_limit must be > 0, got %v", c.AnalysisConfig.ArbitrageLimit)
	}
	return nil
}
