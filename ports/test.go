package ports

import (
	"context"

	"subpower/domain/power"
)

// StatisticalTest wraps one statistical test callable so it receives exactly
// the subsample structure it expects and returns a scalar p-value. A failure
// of the underlying test (degenerate variance, singular filter) is returned
// as an error, never silently suppressed.
type StatisticalTest interface {
	// Name returns the test name for logging and persistence
	Name() string

	// Evaluate adapts the drawn subsample to the test's argument shape and
	// returns the test's p-value
	Evaluate(ctx context.Context, sub power.Subsample) (float64, error)

	// EvaluateFull runs the test on the complete, un-subsampled sample.
	// The orchestrator persists this as original_p.
	EvaluateFull(ctx context.Context) (float64, error)
}

// ClosedFormPower computes the traditional distribution-based power curve
// for the full sample at each count of the schedule. Families without a
// closed form (the permutation-based tests) simply have none.
type ClosedFormPower interface {
	Compute(counts power.CountsSchedule, alpha float64) ([]float64, error)
}
