// Package refresher keeps a live view of a Capybot log by re-ingesting it
// on a fixed interval.
package refresher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"capyviz/src/datamodels"
	"capyviz/src/ingest"
	"capyviz/src/metrics"
	"capyviz/src/utils/errors"
)

const DefaultInterval = time.Second

// Refresher rebuilds the dataset from the whole log every interval and
// hands it to a DatasetWriter. It also keeps the latest good dataset for
// readers such as the HTTP server.
type Refresher struct {
	path     string
	interval time.Duration
	ingester *ingest.LogIngester
	writer   metrics.DatasetWriter
	trigger  chan struct{}

	mu     sync.RWMutex
	latest *datamodels.AggregatedDataset
	stats  ingest.IngestStats
	// when the latest dataset was built
	refreshedAt time.Time
}

type RefresherBuilder struct {
	path     string
	interval time.Duration
	ingester *ingest.LogIngester
	writer   metrics.DatasetWriter
}

func NewRefresherBuilder() *RefresherBuilder {
	return &RefresherBuilder{interval: DefaultInterval}
}

func (b *RefresherBuilder) WithPath(path string) *RefresherBuilder {
	b.path = path
	return b
}

func (b *RefresherBuilder) WithInterval(interval time.Duration) *RefresherBuilder {
	b.interval = interval
	return b
}

func (b *RefresherBuilder) WithIngester(ingester *ingest.LogIngester) *RefresherBuilder {
	b.ingester = ingester
	return b
}

func (b *RefresherBuilder) WithWriter(writer metrics.DatasetWriter) *RefresherBuilder {
	b.writer = writer
	return b
}

func (b *RefresherBuilder) Build() (*Refresher, error) {
	if b.path == "" {
		return nil, errors.New("refresher needs a log path")
	}
	if b.interval <= 0 {
		return nil, errors.Newf("refresh interval must be positive, got %s", b.interval)
	}
	ingester := b.ingester
	if ingester == nil {
		ingester = ingest.NewLogIngesterBuilder().Build()
	}
	writer := b.writer
	if writer == nil {
		writer = metrics.NewMultiDatasetWriter()
	}
	return &Refresher{
		path:     b.path,
		interval: b.interval,
		ingester: ingester,
		writer:   writer,
		trigger:  make(chan struct{}, 1),
	}, nil
}

// Run refreshes once immediately, then every interval or whenever Trigger
// is called, until ctx is done. Failed refreshes are logged and retried on
// the next tick.
func (r *Refresher) Run(ctx context.Context) error {
	slog.Info("Starting refresher", "path", r.path, "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refreshAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down refresher")
			return nil
		case <-ticker.C:
			r.refreshAndLog(ctx)
		case <-r.trigger:
			r.refreshAndLog(ctx)
		}
	}
}

// Trigger asks a running refresher for an extra refresh. Calls made while
// one is already pending are coalesced.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Refresher) refreshAndLog(ctx context.Context) {
	if _, err := r.RefreshOnce(ctx); err != nil {
		slog.Error("Failed to refresh dataset", "path", r.path, "error", err)
	}
}

// RefreshOnce ingests the log and publishes the result. An unreadable log
// leaves the previous dataset in place.
func (r *Refresher) RefreshOnce(ctx context.Context) (*datamodels.AggregatedDataset, error) {
	ds, stats, err := r.ingester.IngestWithStats(ctx, r.path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.latest = ds
	r.stats = stats
	r.refreshedAt = time.Now()
	r.mu.Unlock()

	if err := r.writer.Write(ctx, ds); err != nil {
		return ds, errors.Wrap(err, "publishing dataset")
	}
	return ds, nil
}

// Latest returns the most recent dataset, or nil before the first
// successful refresh.
func (r *Refresher) Latest() (*datamodels.AggregatedDataset, ingest.IngestStats, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.stats, r.refreshedAt
}

func (r *Refresher) Path() string {
	return r.path
}
