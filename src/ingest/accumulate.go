package ingest

import (
	"capyviz/src/datamodels"
)

// lineOutcome is what happened to a parsed line once it met the dataset.
type lineOutcome int

const (
	outcomeApplied lineOutcome = iota
	// recognized or unknown kinds that accumulate nothing
	outcomeIgnored
	outcomeSkipped
)

// apply folds one validated line into ds. It only fails for status lines
// that name a strategy nobody announced.
func apply(ds *datamodels.AggregatedDataset, line logLine) (lineOutcome, SkipReason) {
	switch line.kind {
	case datamodels.MessageKindPrice:
		series, ok := ds.Prices.Get(line.entity)
		if !ok {
			// the first price becomes the baseline
			series = datamodels.NewPriceSeries(line.price)
			ds.Prices.Set(line.entity, series)
		}
		series.Append(line.price, line.timestamp)

	case datamodels.MessageKindStrategies:
		// a repeated announcement resets the strategy, dropping its statuses
		for pair := line.announced.Oldest(); pair != nil; pair = pair.Next() {
			ds.Strategies.Set(pair.Key, datamodels.NewAnnouncedStrategyRecord(pair.Value))
		}

	case datamodels.MessageKindStrategyStatus:
		record, ok := ds.Strategies.Get(line.entity)
		if !ok {
			return outcomeSkipped, SkipReasonUnregisteredStrategy
		}
		record.Statuses.Append(line.data, line.timestamp)

	case datamodels.MessageKindOrder:
		orders, ok := ds.Orders.Get(line.entity)
		if !ok {
			orders = datamodels.NewOrderLog()
			ds.Orders.Set(line.entity, orders)
		}
		orders.Append(line.timestamp)

	case datamodels.MessageKindRammPoolState:
		states, ok := ds.RammPoolStates.Get(line.entity)
		if !ok {
			states = datamodels.NewSnapshotSeries()
			ds.RammPoolStates.Set(line.entity, states)
		}
		states.Append(line.data, line.timestamp)

	case datamodels.MessageKindImbRatios:
		ratios, ok := ds.RammImbRatios.Get(line.entity)
		if !ok {
			ratios = datamodels.NewSnapshotSeries()
			ds.RammImbRatios.Set(line.entity, ratios)
		}
		ratios.Append(line.data, line.timestamp)

	case datamodels.MessageKindRammVolumes:
		return outcomeIgnored, SkipReasonNone

	default:
		return outcomeIgnored, SkipReasonNone
	}

	return outcomeApplied, SkipReasonNone
}
