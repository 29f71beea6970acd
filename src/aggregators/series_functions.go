package aggregators

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"capyviz/src/datamodels"
)

// SummarizeSeries describes values sampled at times. times and values must
// be parallel; a series shorter than two samples has zero spread and slope.
func SummarizeSeries(values, times []float64) (datamodels.SeriesSummary, error) {
	if len(values) != len(times) {
		return datamodels.SeriesSummary{}, fmt.Errorf("series has %d values but %d timestamps", len(values), len(times))
	}
	summary := datamodels.SeriesSummary{Count: len(values)}
	if len(values) == 0 {
		return summary, nil
	}

	summary.First = values[0]
	summary.Last = values[len(values)-1]
	summary.Span = times[len(times)-1] - times[0]

	var err error
	if summary.Min, err = stats.Min(values); err != nil {
		return summary, err
	}
	if summary.Max, err = stats.Max(values); err != nil {
		return summary, err
	}
	if summary.Mean, err = stats.Mean(values); err != nil {
		return summary, err
	}
	if summary.Median, err = stats.Median(values); err != nil {
		return summary, err
	}

	if len(values) < 2 {
		return summary, nil
	}
	if summary.StdDev, err = stats.StandardDeviationSample(values); err != nil {
		return summary, err
	}
	if summary.Slope, err = LinRegSlope(values, times); err != nil {
		return summary, err
	}
	return summary, nil
}

// LinRegSlope fits values against seconds since the first timestamp and
// returns the fitted rise over run. Samples sharing one timestamp have no
// slope.
func LinRegSlope(values, times []float64) (float64, error) {
	if len(values) < 2 {
		return 0, fmt.Errorf("not enough points to calculate linear regression slope")
	}
	// x's are (timestamp - start_timestamp)
	XYs := make([]stats.Coordinate, 0, len(values))
	for i, value := range values {
		XYs = append(XYs, stats.Coordinate{X: times[i] - times[0], Y: value})
	}

	lr, err := stats.LinReg(XYs)
	if err != nil {
		return 0, err
	}
	run := lr[len(lr)-1].X - lr[0].X
	if run == 0 {
		return 0, nil
	}
	rise := lr[len(lr)-1].Y - lr[0].Y
	return rise / run, nil
}

// FractionAbove returns the share of values strictly greater than limit.
func FractionAbove(values []float64, limit float64) float64 {
	if len(values) == 0 {
		return 0
	}
	above := 0
	for _, v := range values {
		if v > limit {
			above++
		}
	}
	return float64(above) / float64(len(values))
}

// FractionOutsideBand returns the share of values outside [1-delta, 1+delta].
func FractionOutsideBand(values []float64, delta float64) float64 {
	if len(values) == 0 {
		return 0
	}
	outside := 0
	for _, v := range values {
		if v < 1-delta || v > 1+delta {
			outside++
		}
	}
	return float64(outside) / float64(len(values))
}

// RatePerHour returns count events spread over span seconds, per hour.
func RatePerHour(count int, span float64) float64 {
	if span <= 0 {
		return 0
	}
	return float64(count) / span * 3600
}
