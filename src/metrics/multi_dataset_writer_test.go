package metrics

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capyviz/src/datamodels"
)

type recordingWriter struct {
	writes int
	closed bool
	err    error
}

func (w *recordingWriter) Write(ctx context.Context, ds *datamodels.AggregatedDataset) error {
	w.writes++
	return w.err
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return w.err
}

func TestMultiDatasetWriter(t *testing.T) {
	failing := &recordingWriter{err: errors.New("boom")}
	healthy := &recordingWriter{}
	writer := NewMultiDatasetWriter(failing)
	writer.AddWriter(healthy)

	err := writer.Write(context.Background(), datamodels.NewAggregatedDataset())
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, failing.writes)
	assert.Equal(t, 1, healthy.writes)

	assert.Error(t, writer.Close())
	assert.True(t, healthy.closed)
	assert.Nil(t, writer.Websocket())
}

func TestBuildDatasetWriter(t *testing.T) {
	writer, err := BuildDatasetWriter(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, writer.Len())

	writer, err = BuildDatasetWriter(&datamodels.MetricsWriterConfig{
		WsWriter:   true,
		FileWriter: true,
		FilePath:   filepath.Join(t.TempDir(), "dataset.json"),
		FileFormat: datamodels.FormatJSON,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, writer.Len())
	assert.NotNil(t, writer.Websocket())

	_, err = BuildDatasetWriter(&datamodels.MetricsWriterConfig{
		FileWriter: true,
		FilePath:   filepath.Join(t.TempDir(), "dataset.xml"),
		FileFormat: "xml",
	})
	assert.Error(t, err)
}
