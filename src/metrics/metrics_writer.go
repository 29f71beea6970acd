package metrics

import (
	"context"
	"log/slog"

	"capyviz/src/datamodels"
)

// DatasetWriter publishes every freshly ingested dataset.
type DatasetWriter interface {
	Write(ctx context.Context, ds *datamodels.AggregatedDataset) error
	// Close cleans up any resources
	Close() error
}

// BuildDatasetWriter wires the writers enabled in config into one fan-out
// writer. A nil config yields a writer with no destinations.
func BuildDatasetWriter(config *datamodels.MetricsWriterConfig) (*MultiDatasetWriter, error) {
	if config == nil {
		slog.Warn("MetricsWriterConfig is nil, no dataset writers configured")
		return NewMultiDatasetWriter(), nil
	}
	writers := []DatasetWriter{}
	if config.WsWriter {
		writers = append(writers, NewWebsocketDatasetWriter())
	}
	if config.FileWriter {
		fileWriter, err := NewFileDatasetWriter(config.FilePath, config.FileFormat)
		if err != nil {
			return nil, err
		}
		writers = append(writers, fileWriter)
	}
	return NewMultiDatasetWriter(writers...), nil
}
