package datamodels

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrKeySetDrift is returned when a payload sequence stops carrying a key
// that its first entry declared.
var ErrKeySetDrift = errors.New("payload key set drifted from first entry")

// Number is a payload value kept as the JSON number literal Capybot wrote.
// Pool balances are integer base units and may exceed float64 precision.
type Number json.Number

// NumberFromFloat formats v as the shortest literal that parses back to v.
func NumberFromFloat(v float64) Number {
	return Number(strconv.FormatFloat(v, 'g', -1, 64))
}

func (n Number) String() string {
	return string(n)
}

func (n Number) Float64() (float64, error) {
	return json.Number(n).Float64()
}

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(json.Number(n))
}

// UnmarshalJSON accepts bare JSON numbers that fit a float64 range.
// Quoted numbers are rejected.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' {
		return fmt.Errorf("payload value %s is not a number", data)
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(string(number), 64); err != nil {
		return fmt.Errorf("payload value %s is out of range: %w", data, err)
	}
	*n = Number(number)
	return nil
}

// Payload is a schema-free key to number map as emitted by Capybot
// (pool balances, imbalance ratios, strategy status values).
// Keys keep the order in which they appeared in the log line.
type Payload = orderedmap.OrderedMap[string, Number]

// Parameters is the configuration map a strategy announces at startup.
type Parameters = orderedmap.OrderedMap[string, any]

// NewPayload builds a payload from computed key/value pairs, keeping their
// order.
func NewPayload(pairs ...orderedmap.Pair[string, float64]) *Payload {
	p := orderedmap.New[string, Number]()
	for _, pair := range pairs {
		p.Set(pair.Key, NumberFromFloat(pair.Value))
	}
	return p
}

// PayloadKeys returns the keys of p in first-seen order.
func PayloadKeys(p *Payload) []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, p.Len())
	for pair := p.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// PriceSeries is the price history of a single swap pool source.
type PriceSeries struct {
	// first observed price, used as the baseline for relative plots
	Offset float64   `json:"offset"`
	Price  []float64 `json:"price"`
	Time   []float64 `json:"time"`
}

func NewPriceSeries(offset float64) *PriceSeries {
	return &PriceSeries{
		Offset: offset,
		Price:  []float64{},
		Time:   []float64{},
	}
}

func (p *PriceSeries) Append(price, timestamp float64) {
	p.Price = append(p.Price, price)
	p.Time = append(p.Time, timestamp)
}

func (p *PriceSeries) Len() int {
	return len(p.Price)
}

// Relative returns every price divided by the series offset.
// A zero offset yields a copy of the raw prices.
func (p *PriceSeries) Relative() []float64 {
	relative := make([]float64, len(p.Price))
	for i, price := range p.Price {
		if p.Offset == 0 {
			relative[i] = price
			continue
		}
		relative[i] = price / p.Offset
	}
	return relative
}

type StrategyStatuses struct {
	Value []*Payload `json:"value"`
	Time  []float64  `json:"time"`
}

func (s *StrategyStatuses) Append(value *Payload, timestamp float64) {
	s.Value = append(s.Value, value)
	s.Time = append(s.Time, timestamp)
}

func (s *StrategyStatuses) Len() int {
	return len(s.Value)
}

// Keys returns the status keys of the first recorded status.
func (s *StrategyStatuses) Keys() []string {
	if len(s.Value) == 0 {
		return nil
	}
	return PayloadKeys(s.Value[0])
}

func (s *StrategyStatuses) Column(key string) ([]float64, error) {
	return payloadColumn(s.Value, key)
}

// StrategyRecord holds what a strategy announced about itself and
// every status it reported afterwards.
type StrategyRecord struct {
	Parameters    *Parameters      `json:"parameters"`
	// announced value kept as is when it was not a parameter object
	RawParameters json.RawMessage  `json:"raw_parameters,omitempty"`
	Statuses      StrategyStatuses `json:"statuses"`
}

func NewStrategyRecord(parameters *Parameters) *StrategyRecord {
	if parameters == nil {
		parameters = orderedmap.New[string, any]()
	}
	return &StrategyRecord{
		Parameters: parameters,
		Statuses: StrategyStatuses{
			Value: []*Payload{},
			Time:  []float64{},
		},
	}
}

// NewAnnouncedStrategyRecord builds a record from the value a strategies
// announcement gave one strategy. Values that are not objects land in
// RawParameters.
func NewAnnouncedStrategyRecord(raw json.RawMessage) *StrategyRecord {
	var parameters *Parameters
	if err := json.Unmarshal(raw, &parameters); err != nil {
		record := NewStrategyRecord(nil)
		record.RawParameters = raw
		return record
	}
	return NewStrategyRecord(parameters)
}

// Name returns the "name" parameter if the strategy announced one.
func (r *StrategyRecord) Name() string {
	if r.Parameters == nil {
		return ""
	}
	name, ok := r.Parameters.Get("name")
	if !ok {
		return ""
	}
	s, _ := name.(string)
	return s
}

// OrderLog lists the times at which a strategy emitted a trade order.
type OrderLog struct {
	Time []float64 `json:"time"`
}

func NewOrderLog() *OrderLog {
	return &OrderLog{Time: []float64{}}
}

func (o *OrderLog) Append(timestamp float64) {
	o.Time = append(o.Time, timestamp)
}

func (o *OrderLog) Len() int {
	return len(o.Time)
}

// SnapshotSeries is a sequence of per-asset snapshots of a RAMM pool.
type SnapshotSeries struct {
	Time []float64  `json:"time"`
	Data []*Payload `json:"data"`
}

// PoolStateSeries tracks per-asset balances of a RAMM pool.
type PoolStateSeries = SnapshotSeries

// ImbalanceRatioSeries tracks per-asset imbalance ratios of a RAMM pool.
type ImbalanceRatioSeries = SnapshotSeries

func NewSnapshotSeries() *SnapshotSeries {
	return &SnapshotSeries{
		Time: []float64{},
		Data: []*Payload{},
	}
}

func (s *SnapshotSeries) Append(data *Payload, timestamp float64) {
	s.Time = append(s.Time, timestamp)
	s.Data = append(s.Data, data)
}

func (s *SnapshotSeries) Len() int {
	return len(s.Data)
}

// Keys returns the asset names of the first snapshot. Later snapshots
// are expected to carry the same set.
func (s *SnapshotSeries) Keys() []string {
	if len(s.Data) == 0 {
		return nil
	}
	return PayloadKeys(s.Data[0])
}

func (s *SnapshotSeries) Column(key string) ([]float64, error) {
	return payloadColumn(s.Data, key)
}

func payloadColumn(entries []*Payload, key string) ([]float64, error) {
	column := make([]float64, len(entries))
	for i, entry := range entries {
		if entry == nil {
			return nil, fmt.Errorf("entry %d is empty: %w", i, ErrKeySetDrift)
		}
		value, ok := entry.Get(key)
		if !ok {
			return nil, fmt.Errorf("entry %d has no key %q: %w", i, key, ErrKeySetDrift)
		}
		number, err := value.Float64()
		if err != nil {
			return nil, fmt.Errorf("entry %d key %q: %w", i, key, err)
		}
		column[i] = number
	}
	return column, nil
}

// Elapsed converts absolute timestamps into seconds since the first one.
func Elapsed(times []float64) []float64 {
	elapsed := make([]float64, len(times))
	if len(times) == 0 {
		return elapsed
	}
	start := times[0]
	for i, ts := range times {
		elapsed[i] = ts - start
	}
	return elapsed
}

// AggregatedDataset is everything one pass over a Capybot log produced.
// Each collection keeps entities in the order they were first seen.
type AggregatedDataset struct {
	Prices         *orderedmap.OrderedMap[string, *PriceSeries]          `json:"prices"`
	Strategies     *orderedmap.OrderedMap[string, *StrategyRecord]       `json:"strategies"`
	Orders         *orderedmap.OrderedMap[string, *OrderLog]             `json:"orders"`
	RammPoolStates *orderedmap.OrderedMap[string, *PoolStateSeries]      `json:"ramm_pool_states"`
	RammImbRatios  *orderedmap.OrderedMap[string, *ImbalanceRatioSeries] `json:"ramm_imb_ratios"`
}

func NewAggregatedDataset() *AggregatedDataset {
	return &AggregatedDataset{
		Prices:         orderedmap.New[string, *PriceSeries](),
		Strategies:     orderedmap.New[string, *StrategyRecord](),
		Orders:         orderedmap.New[string, *OrderLog](),
		RammPoolStates: orderedmap.New[string, *PoolStateSeries](),
		RammImbRatios:  orderedmap.New[string, *ImbalanceRatioSeries](),
	}
}

// IsEmpty reports whether no collection holds any entity.
func (ds *AggregatedDataset) IsEmpty() bool {
	return ds.Prices.Len() == 0 &&
		ds.Strategies.Len() == 0 &&
		ds.Orders.Len() == 0 &&
		ds.RammPoolStates.Len() == 0 &&
		ds.RammImbRatios.Len() == 0
}

// EntityCounts returns the number of entities per collection, keyed by the
// collection's JSON name.
func (ds *AggregatedDataset) EntityCounts() map[string]int {
	return map[string]int{
		"prices":           ds.Prices.Len(),
		"strategies":       ds.Strategies.Len(),
		"orders":           ds.Orders.Len(),
		"ramm_pool_states": ds.RammPoolStates.Len(),
		"ramm_imb_ratios":  ds.RammImbRatios.Len(),
	}
}

// DatasetSnapshot is a dataset stamped with the time it was built, as pushed
// to live viewers.
type DatasetSnapshot struct {
	SnapshotTime time.Time          `json:"snapshot_time"`
	Dataset      *AggregatedDataset `json:"dataset"`
}

func NewDatasetSnapshot(ds *AggregatedDataset) DatasetSnapshot {
	return DatasetSnapshot{SnapshotTime: time.Now().UTC(), Dataset: ds}
}
