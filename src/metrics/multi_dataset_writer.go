package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"capyviz/src/datamodels"
)

// MultiDatasetWriter writes datasets to multiple destinations
type MultiDatasetWriter struct {
	writers []DatasetWriter
	mu      sync.RWMutex
}

func NewMultiDatasetWriter(writers ...DatasetWriter) *MultiDatasetWriter {
	return &MultiDatasetWriter{
		writers: writers,
	}
}

func (w *MultiDatasetWriter) AddWriter(writer DatasetWriter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writers = append(w.writers, writer)
}

// Websocket returns the first websocket writer, if one is configured.
func (w *MultiDatasetWriter) Websocket() *WebsocketDatasetWriter {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, writer := range w.writers {
		if wsWriter, ok := writer.(*WebsocketDatasetWriter); ok {
			return wsWriter
		}
	}
	return nil
}

func (w *MultiDatasetWriter) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.writers)
}

// Write hands ds to every writer; a failing writer does not stop the others.
// The last error seen is returned.
func (w *MultiDatasetWriter) Write(ctx context.Context, ds *datamodels.AggregatedDataset) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var lastErr error
	for _, writer := range w.writers {
		if err := writer.Write(ctx, ds); err != nil {
			lastErr = err
			slog.Error("Failed to write dataset",
				"writer", fmt.Sprintf("%T", writer),
				"error", err)
		}
	}
	return lastErr
}

func (w *MultiDatasetWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var lastErr error
	for _, writer := range w.writers {
		if err := writer.Close(); err != nil {
			lastErr = err
			slog.Error("Failed to close dataset writer",
				"writer", fmt.Sprintf("%T", writer),
				"error", err)
		}
	}
	return lastErr
}
