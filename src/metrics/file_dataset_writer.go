package metrics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"capyviz/src/datamodels"
)

var csvHeader = []string{"category", "entity", "time", "field", "value"}

// datasetFileMode replaces the 0600 that os.CreateTemp hands out.
const datasetFileMode = 0644

// FileDatasetWriter keeps the latest dataset on disk. Every Write replaces
// the whole file, so readers never see a half written snapshot.
type FileDatasetWriter struct {
	path       string
	fileFormat datamodels.FileFormat
	mu         sync.Mutex
}

func NewFileDatasetWriter(path string, format datamodels.FileFormat) (*FileDatasetWriter, error) {
	switch format {
	case datamodels.FormatCSV, datamodels.FormatJSON:
	default:
		return nil, fmt.Errorf("unsupported dataset file format %q", format)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}
	return &FileDatasetWriter{
		path:       path,
		fileFormat: format,
	}, nil
}

func (w *FileDatasetWriter) Path() string {
	return w.path
}

func (w *FileDatasetWriter) Write(ctx context.Context, ds *datamodels.AggregatedDataset) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(w.path), filepath.Base(w.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer os.Remove(tmp.Name())

	switch w.fileFormat {
	case datamodels.FormatJSON:
		err = writeDatasetJSON(tmp, ds)
	case datamodels.FormatCSV:
		err = writeDatasetCSV(tmp, ds)
	}
	if err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(datasetFileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set dataset file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close dataset file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("failed to replace dataset file: %w", err)
	}
	return nil
}

func (w *FileDatasetWriter) Close() error {
	return nil
}

func writeDatasetJSON(out io.Writer, ds *datamodels.AggregatedDataset) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(datamodels.NewDatasetSnapshot(ds)); err != nil {
		return fmt.Errorf("failed to write JSON dataset: %w", err)
	}
	return nil
}

// writeDatasetCSV flattens ds into one row per sampled value.
func writeDatasetCSV(out io.Writer, ds *datamodels.AggregatedDataset) error {
	csvWriter := csv.NewWriter(out)
	if err := csvWriter.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range datasetRows(ds) {
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("error flushing CSV writer: %w", err)
	}
	return nil
}

func datasetRows(ds *datamodels.AggregatedDataset) [][]string {
	rows := [][]string{}
	row := func(category, entity string, ts float64, field string, value string) {
		rows = append(rows, []string{category, entity, formatFloat(ts), field, value})
	}
	payloadRows := func(category, entity string, ts float64, payload *datamodels.Payload) {
		if payload == nil {
			return
		}
		for pair := payload.Oldest(); pair != nil; pair = pair.Next() {
			row(category, entity, ts, pair.Key, pair.Value.String())
		}
	}

	for pair := ds.Prices.Oldest(); pair != nil; pair = pair.Next() {
		series := pair.Value
		// the offset row carries the time of the price it was taken from
		if series.Len() > 0 {
			row("prices", pair.Key, series.Time[0], "offset", formatFloat(series.Offset))
		}
		for i, price := range series.Price {
			row("prices", pair.Key, series.Time[i], "price", formatFloat(price))
		}
	}
	for pair := ds.Strategies.Oldest(); pair != nil; pair = pair.Next() {
		statuses := pair.Value.Statuses
		for i, status := range statuses.Value {
			payloadRows("strategies", pair.Key, statuses.Time[i], status)
		}
	}
	for pair := ds.Orders.Oldest(); pair != nil; pair = pair.Next() {
		for _, ts := range pair.Value.Time {
			row("orders", pair.Key, ts, "order", "1")
		}
	}
	for pair := ds.RammPoolStates.Oldest(); pair != nil; pair = pair.Next() {
		for i, data := range pair.Value.Data {
			payloadRows("ramm_pool_states", pair.Key, pair.Value.Time[i], data)
		}
	}
	for pair := ds.RammImbRatios.Oldest(); pair != nil; pair = pair.Next() {
		for i, data := range pair.Value.Data {
			payloadRows("ramm_imb_ratios", pair.Key, pair.Value.Time[i], data)
		}
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
