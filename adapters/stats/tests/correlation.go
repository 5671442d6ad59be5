package tests

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"subpower/domain/core"
	"subpower/domain/power"
)

// Correlation tests whether two paired vectors are linearly associated
// (Pearson product-moment correlation). The draw mode is matched: one
// identifier set indexes both sides, preserving the pairing.
type Correlation struct {
	X []float64
	Y []float64
}

// NewCorrelation creates a Pearson correlation test over the full pairs
func NewCorrelation(x, y []float64) (*Correlation, error) {
	if len(x) != len(y) {
		return nil, core.NewValidationError("correlation", "vectors differ in length")
	}
	return &Correlation{X: x, Y: y}, nil
}

// Name returns the test name
func (t *Correlation) Name() string { return "correlation" }

// Evaluate gathers the paired observations at the drawn identifiers and
// runs the test
func (t *Correlation) Evaluate(ctx context.Context, sub power.Subsample) (float64, error) {
	if sub.Shared == nil {
		return 0, shapeError(t.Name(), "shared identifiers", len(sub.Vectors))
	}
	x := make([]float64, len(sub.Shared))
	y := make([]float64, len(sub.Shared))
	for i, id := range sub.Shared {
		if id < 0 || id >= len(t.X) {
			return 0, core.NewValidationError("subsample", fmt.Sprintf("id %d outside pairs of length %d", id, len(t.X)))
		}
		x[i] = t.X[id]
		y[i] = t.Y[id]
	}
	return pearsonP(x, y)
}

// EvaluateFull runs the test on the complete pairs
func (t *Correlation) EvaluateFull(ctx context.Context) (float64, error) {
	return pearsonP(t.X, t.Y)
}

func pearsonP(x, y []float64) (float64, error) {
	n := len(x)
	if n < 3 {
		return 0, fmt.Errorf("%w: correlation needs at least 3 pairs", core.ErrDegenerateSample)
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0, core.ErrZeroVariance
	}
	if r >= 1 || r <= -1 {
		// perfect correlation has a degenerate t transform
		return 0, nil
	}
	df := float64(n - 2)
	tStat := r * math.Sqrt(df/(1-r*r))
	return twoSidedTP(tStat, df), nil
}
