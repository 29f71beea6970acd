package datamodels

// SeriesSummary describes one numeric series against its timestamps.
type SeriesSummary struct {
	Count  int     `json:"count"`
	First  float64 `json:"first"`
	Last   float64 `json:"last"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	// change per second of the least squares fit
	Slope float64 `json:"slope"`
	// seconds between first and last sample
	Span float64 `json:"span"`
}

type PriceSummary struct {
	SeriesSummary
	Offset           float64 `json:"offset"`
	ChangeFromOffset float64 `json:"change_from_offset"`
}

type StrategySummary struct {
	Name          string  `json:"name,omitempty"`
	Announced     bool    `json:"announced"`
	StatusCount   int     `json:"status_count"`
	OrderCount    int     `json:"order_count"`
	OrdersPerHour float64 `json:"orders_per_hour"`
	// per status key, share of samples above the arbitrage limit
	AboveLimit  map[string]float64 `json:"above_limit"`
	KeySetDrift bool               `json:"key_set_drift"`
}

type PoolSummary struct {
	SnapshotCount int                      `json:"snapshot_count"`
	RatioCount    int                      `json:"ratio_count"`
	Balances      map[string]SeriesSummary `json:"balances"`
	// per asset, share of imbalance ratios outside [1-delta, 1+delta]
	OutOfBand   map[string]float64 `json:"out_of_band"`
	KeySetDrift bool               `json:"key_set_drift"`
}

type DatasetSummary struct {
	Prices     map[string]PriceSummary    `json:"prices"`
	Strategies map[string]StrategySummary `json:"strategies"`
	Pools      map[string]PoolSummary     `json:"pools"`
	Analysis   AnalysisConfig             `json:"analysis"`
}
