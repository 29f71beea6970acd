// Package aggregators reduces an ingested dataset to per-entity figures:
// price drift, strategy activity and pool balance health.
package aggregators

import (
	"math"

	"capyviz/src/datamodels"
	capyerrors "capyviz/src/utils/errors"
)

// SummarizeDataset computes a summary for every entity of ds. Entities whose
// payload keys drift from their first entry are flagged and summarized only
// on the keys that stayed present throughout.
func SummarizeDataset(ds *datamodels.AggregatedDataset, analysis datamodels.AnalysisConfig) (*datamodels.DatasetSummary, error) {
	summary := &datamodels.DatasetSummary{
		Prices:     make(map[string]datamodels.PriceSummary),
		Strategies: make(map[string]datamodels.StrategySummary),
		Pools:      make(map[string]datamodels.PoolSummary),
		Analysis:   analysis,
	}

	for pair := ds.Prices.Oldest(); pair != nil; pair = pair.Next() {
		priceSummary, err := summarizePrices(pair.Value)
		if err != nil {
			return nil, capyerrors.Wrapf(err, "price source %s", pair.Key)
		}
		summary.Prices[pair.Key] = priceSummary
	}

	for pair := ds.Strategies.Oldest(); pair != nil; pair = pair.Next() {
		orders, _ := ds.Orders.Get(pair.Key)
		summary.Strategies[pair.Key] = summarizeStrategy(pair.Value, orders, analysis.ArbitrageLimit)
	}
	// orders may name strategies that were never announced
	for pair := ds.Orders.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := summary.Strategies[pair.Key]; ok {
			continue
		}
		summary.Strategies[pair.Key] = summarizeStrategy(nil, pair.Value, analysis.ArbitrageLimit)
	}

	for pair := ds.RammPoolStates.Oldest(); pair != nil; pair = pair.Next() {
		ratios, _ := ds.RammImbRatios.Get(pair.Key)
		poolSummary, err := summarizePool(pair.Value, ratios, analysis.ImbalanceDelta)
		if err != nil {
			return nil, capyerrors.Wrapf(err, "pool %s", pair.Key)
		}
		summary.Pools[pair.Key] = poolSummary
	}
	for pair := ds.RammImbRatios.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := summary.Pools[pair.Key]; ok {
			continue
		}
		poolSummary, err := summarizePool(nil, pair.Value, analysis.ImbalanceDelta)
		if err != nil {
			return nil, capyerrors.Wrapf(err, "pool %s", pair.Key)
		}
		summary.Pools[pair.Key] = poolSummary
	}

	return summary, nil
}

func summarizePrices(series *datamodels.PriceSeries) (datamodels.PriceSummary, error) {
	seriesSummary, err := SummarizeSeries(series.Price, series.Time)
	if err != nil {
		return datamodels.PriceSummary{}, err
	}
	priceSummary := datamodels.PriceSummary{
		SeriesSummary: seriesSummary,
		Offset:        series.Offset,
	}
	if series.Offset != 0 && seriesSummary.Count > 0 {
		priceSummary.ChangeFromOffset = seriesSummary.Last/series.Offset - 1
	}
	return priceSummary, nil
}

func summarizeStrategy(record *datamodels.StrategyRecord, orders *datamodels.OrderLog, limit float64) datamodels.StrategySummary {
	summary := datamodels.StrategySummary{AboveLimit: make(map[string]float64)}

	start, end := math.Inf(1), math.Inf(-1)
	widen := func(times []float64) {
		for _, ts := range times {
			start = math.Min(start, ts)
			end = math.Max(end, ts)
		}
	}

	if record != nil {
		summary.Announced = true
		summary.Name = record.Name()
		summary.StatusCount = record.Statuses.Len()
		widen(record.Statuses.Time)
		for _, key := range record.Statuses.Keys() {
			column, err := record.Statuses.Column(key)
			if err != nil {
				summary.KeySetDrift = true
				continue
			}
			summary.AboveLimit[key] = FractionAbove(column, limit)
		}
	}
	if orders != nil {
		summary.OrderCount = orders.Len()
		widen(orders.Time)
	}
	// statuses and orders share one span
	if end > start {
		summary.OrdersPerHour = RatePerHour(summary.OrderCount, end-start)
	}
	return summary
}

func summarizePool(states *datamodels.PoolStateSeries, ratios *datamodels.ImbalanceRatioSeries, delta float64) (datamodels.PoolSummary, error) {
	summary := datamodels.PoolSummary{
		Balances:  make(map[string]datamodels.SeriesSummary),
		OutOfBand: make(map[string]float64),
	}

	if states != nil {
		summary.SnapshotCount = states.Len()
		for _, asset := range states.Keys() {
			column, err := states.Column(asset)
			if err != nil {
				summary.KeySetDrift = true
				continue
			}
			balance, err := SummarizeSeries(column, states.Time)
			if err != nil {
				return summary, err
			}
			summary.Balances[asset] = balance
		}
	}

	if ratios != nil {
		summary.RatioCount = ratios.Len()
		for _, asset := range ratios.Keys() {
			column, err := ratios.Column(asset)
			if err != nil {
				summary.KeySetDrift = true
				continue
			}
			summary.OutOfBand[asset] = FractionOutsideBand(column, delta)
		}
	}

	return summary, nil
}
