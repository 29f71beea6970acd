// Package ingest turns a Capybot JSON-lines log into an AggregatedDataset.
//
// A log is read in one synchronous pass. Lines that cannot be decoded, or
// that miss what their message kind needs, are skipped and counted; only a
// failure to read the log itself is reported as an error.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"capyviz/src/datamodels"
	capyerrors "capyviz/src/utils/errors"
)

// ErrLogUnreadable marks a log that could not be opened or read. It is never
// returned for bad line content.
var ErrLogUnreadable = errors.New("capybot log unreadable")

type LogIngester struct {
	bucketClient  *storage.Client
	clientOptions []option.ClientOption
	logger        *slog.Logger
}

type LogIngesterBuilder struct {
	bucketClient  *storage.Client
	clientOptions []option.ClientOption
	logger        *slog.Logger
}

func NewLogIngesterBuilder() *LogIngesterBuilder {
	return &LogIngesterBuilder{}
}

// WithBucketClient reuses client for gs:// logs instead of dialing one per
// ingest.
func (b *LogIngesterBuilder) WithBucketClient(client *storage.Client) *LogIngesterBuilder {
	b.bucketClient = client
	return b
}

// WithClientOptions sets the options used when a bucket client has to be
// created for a gs:// log.
func (b *LogIngesterBuilder) WithClientOptions(opts ...option.ClientOption) *LogIngesterBuilder {
	b.clientOptions = append(b.clientOptions, opts...)
	return b
}

func (b *LogIngesterBuilder) WithLogger(logger *slog.Logger) *LogIngesterBuilder {
	b.logger = logger
	return b
}

func (b *LogIngesterBuilder) Build() *LogIngester {
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LogIngester{
		bucketClient:  b.bucketClient,
		clientOptions: b.clientOptions,
		logger:        logger.With("component", "log_ingester"),
	}
}

// Ingest reads the log at path with a default ingester.
func Ingest(path string) (*datamodels.AggregatedDataset, error) {
	return NewLogIngesterBuilder().Build().Ingest(context.Background(), path)
}

// Ingest rebuilds the dataset from the whole log at path, which is a local
// file or a gs://bucket/object URI.
func (li *LogIngester) Ingest(ctx context.Context, path string) (*datamodels.AggregatedDataset, error) {
	ds, _, err := li.IngestWithStats(ctx, path)
	return ds, err
}

func (li *LogIngester) IngestWithStats(ctx context.Context, path string) (*datamodels.AggregatedDataset, IngestStats, error) {
	reader, err := li.open(ctx, path)
	if err != nil {
		return nil, newIngestStats(), capyerrors.WrapE(ErrLogUnreadable, err)
	}
	defer reader.Close()

	ds, stats, err := li.IngestReader(reader)
	if err != nil {
		return nil, stats, err
	}

	li.logger.Debug("Ingested capybot log",
		"path", path,
		"lines", stats.LinesRead,
		"applied", stats.Applied,
		"ignored", stats.Ignored,
		"skipped", stats.TotalSkipped())
	return ds, stats, nil
}

// IngestReader runs one pass over r. The returned error is always
// ErrLogUnreadable; malformed lines only show up in the stats.
func (li *LogIngester) IngestReader(r io.Reader) (*datamodels.AggregatedDataset, IngestStats, error) {
	ds := datamodels.NewAggregatedDataset()
	stats := newIngestStats()
	br := bufio.NewReader(r)

	for {
		raw, readErr := br.ReadBytes('\n')
		if len(raw) > 0 {
			stats.LinesRead++
			li.consume(ds, &stats, raw)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, stats, capyerrors.WrapE(ErrLogUnreadable, readErr)
		}
	}

	return ds, stats, nil
}

func (li *LogIngester) consume(ds *datamodels.AggregatedDataset, stats *IngestStats, raw []byte) {
	raw = bytes.TrimRight(raw, "\r\n")

	line, reason := parseLine(raw)
	if reason == SkipReasonNone {
		var outcome lineOutcome
		outcome, reason = apply(ds, line)
		switch outcome {
		case outcomeApplied:
			stats.Applied++
			stats.Kinds[line.kind.String()]++
			return
		case outcomeIgnored:
			stats.Ignored++
			stats.Kinds[line.kind.String()]++
			return
		}
	}

	stats.Skipped[reason]++
	li.logger.Debug("Skipping log line", "line", stats.LinesRead, "reason", reason)
}
