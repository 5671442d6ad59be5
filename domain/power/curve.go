package power

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"subpower/domain/core"
)

// PowerCurve holds the empirical power estimates for one replicate: one row
// per independent run, one column per count in the schedule. Every cell is a
// rejection rate in [0,1].
type PowerCurve struct {
	Counts CountsSchedule `json:"counts"`
	Values [][]float64    `json:"values"`
}

// NumRuns returns the number of independent runs in the curve
func (c *PowerCurve) NumRuns() int {
	return len(c.Values)
}

// Validate checks the shape invariant and that every cell lies in [0,1]
func (c *PowerCurve) Validate() error {
	if err := c.Counts.Validate(); err != nil {
		return err
	}
	if len(c.Values) == 0 {
		return core.NewValidationError("power_curve", "no runs recorded")
	}
	for i, row := range c.Values {
		if len(row) != len(c.Counts) {
			return core.NewValidationError("power_curve",
				fmt.Sprintf("run %d has %d cells, want %d", i, len(row), len(c.Counts)))
		}
		for j, v := range row {
			if v < 0 || v > 1 {
				return core.NewValidationError("power_curve",
					fmt.Sprintf("cell (%d,%d) = %g outside [0,1]", i, j, v))
			}
		}
	}
	return nil
}

// Column returns the power estimates for one count across all runs
func (c *PowerCurve) Column(j int) []float64 {
	col := make([]float64, len(c.Values))
	for i, row := range c.Values {
		col[i] = row[j]
	}
	return col
}

// CountSummary describes the run-to-run distribution of power at one count
type CountSummary struct {
	Count        int     `json:"count"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Percentile95 float64 `json:"percentile_95"`
}

// Summaries computes a CountSummary per column of the curve
func (c *PowerCurve) Summaries() ([]CountSummary, error) {
	out := make([]CountSummary, len(c.Counts))
	for j, count := range c.Counts {
		col := c.Column(j)

		mean, err := stats.Mean(col)
		if err != nil {
			return nil, fmt.Errorf("summarizing count %d: %w", count, err)
		}
		sd, err := stats.StandardDeviation(col)
		if err != nil {
			return nil, fmt.Errorf("summarizing count %d: %w", count, err)
		}
		min, _ := stats.Min(col)
		max, _ := stats.Max(col)
		p95, err := stats.Percentile(col, 95)
		if err != nil {
			// Percentile needs more than one sample; fall back to the max
			p95 = max
		}

		out[j] = CountSummary{
			Count:        count,
			Mean:         mean,
			StdDev:       sd,
			Min:          min,
			Max:          max,
			Percentile95: p95,
		}
	}
	return out, nil
}
