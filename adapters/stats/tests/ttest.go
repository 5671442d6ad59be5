// Package tests implements the statistical test families as subsample
// evaluators. Each type wraps the full replicate data and adapts a drawn
// subsample into the argument shape its test expects, returning a scalar
// p-value. Statistics are computed by hand; p-values come from gonum's
// distributions.
package tests

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"subpower/domain/core"
	"subpower/domain/power"
)

// OneSampleT tests whether a single sample's mean differs from mu0
type OneSampleT struct {
	Values []float64
	Mu0    float64
}

// NewOneSampleT creates a one-sample t-test over the full vector
func NewOneSampleT(values []float64, mu0 float64) *OneSampleT {
	return &OneSampleT{Values: values, Mu0: mu0}
}

// Name returns the test name
func (t *OneSampleT) Name() string { return "one_sample_t" }

// Evaluate runs the test on the drawn vector
func (t *OneSampleT) Evaluate(ctx context.Context, sub power.Subsample) (float64, error) {
	if len(sub.Vectors) != 1 {
		return 0, shapeError(t.Name(), "one vector", len(sub.Vectors))
	}
	return oneSampleTP(sub.Vectors[0], t.Mu0)
}

// EvaluateFull runs the test on the complete sample
func (t *OneSampleT) EvaluateFull(ctx context.Context) (float64, error) {
	return oneSampleTP(t.Values, t.Mu0)
}

func oneSampleTP(x []float64, mu0 float64) (float64, error) {
	n := float64(len(x))
	if len(x) < 2 {
		return 0, fmt.Errorf("%w: one-sample t needs at least 2 observations", core.ErrDegenerateSample)
	}
	mean, sd := stat.MeanStdDev(x, nil)
	if sd == 0 {
		return 0, core.ErrZeroVariance
	}
	tStat := (mean - mu0) / (sd / math.Sqrt(n))
	return twoSidedTP(tStat, n-1), nil
}

// IndependentT tests whether two independent samples share a mean, assuming
// equal variances (pooled Student's t)
type IndependentT struct {
	Groups [][]float64
}

// NewIndependentT creates a two-sample pooled t-test over the full groups
func NewIndependentT(g1, g2 []float64) *IndependentT {
	return &IndependentT{Groups: [][]float64{g1, g2}}
}

// Name returns the test name
func (t *IndependentT) Name() string { return "independent_t" }

// Evaluate runs the test on the two drawn vectors
func (t *IndependentT) Evaluate(ctx context.Context, sub power.Subsample) (float64, error) {
	if len(sub.Vectors) != 2 {
		return 0, shapeError(t.Name(), "two vectors", len(sub.Vectors))
	}
	return pooledTP(sub.Vectors[0], sub.Vectors[1])
}

// EvaluateFull runs the test on the complete groups
func (t *IndependentT) EvaluateFull(ctx context.Context) (float64, error) {
	return pooledTP(t.Groups[0], t.Groups[1])
}

func pooledTP(x1, x2 []float64) (float64, error) {
	n1, n2 := float64(len(x1)), float64(len(x2))
	if len(x1) < 2 || len(x2) < 2 {
		return 0, fmt.Errorf("%w: two-sample t needs at least 2 per group", core.ErrDegenerateSample)
	}
	m1, sd1 := stat.MeanStdDev(x1, nil)
	m2, sd2 := stat.MeanStdDev(x2, nil)
	v1, v2 := sd1*sd1, sd2*sd2
	if v1 == 0 && v2 == 0 {
		return 0, core.ErrZeroVariance
	}
	df := n1 + n2 - 2
	pooled := ((n1-1)*v1 + (n2-1)*v2) / df
	tStat := (m1 - m2) / math.Sqrt(pooled*(1/n1+1/n2))
	return twoSidedTP(tStat, df), nil
}

// WelchT tests whether two independent samples share a mean without assuming
// equal variances
type WelchT struct {
	Groups [][]float64
}

// NewWelchT creates a Welch t-test over the full groups
func NewWelchT(g1, g2 []float64) *WelchT {
	return &WelchT{Groups: [][]float64{g1, g2}}
}

// Name returns the test name
func (t *WelchT) Name() string { return "welch_t" }

// Evaluate runs the test on the two drawn vectors
func (t *WelchT) Evaluate(ctx context.Context, sub power.Subsample) (float64, error) {
	if len(sub.Vectors) != 2 {
		return 0, shapeError(t.Name(), "two vectors", len(sub.Vectors))
	}
	return welchTP(sub.Vectors[0], sub.Vectors[1])
}

// EvaluateFull runs the test on the complete groups
func (t *WelchT) EvaluateFull(ctx context.Context) (float64, error) {
	return welchTP(t.Groups[0], t.Groups[1])
}

func welchTP(x1, x2 []float64) (float64, error) {
	n1, n2 := float64(len(x1)), float64(len(x2))
	if len(x1) < 2 || len(x2) < 2 {
		return 0, fmt.Errorf("%w: Welch t needs at least 2 per group", core.ErrDegenerateSample)
	}
	m1, sd1 := stat.MeanStdDev(x1, nil)
	m2, sd2 := stat.MeanStdDev(x2, nil)
	se1, se2 := sd1*sd1/n1, sd2*sd2/n2
	se := se1 + se2
	if se == 0 {
		return 0, core.ErrZeroVariance
	}
	tStat := (m1 - m2) / math.Sqrt(se)
	// Welch-Satterthwaite degrees of freedom
	df := se * se / (se1*se1/(n1-1) + se2*se2/(n2-1))
	return twoSidedTP(tStat, df), nil
}

func twoSidedTP(tStat, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(tStat))
}

func shapeError(test, want string, got int) error {
	return core.NewValidationError("subsample", fmt.Sprintf("%s expects %s, got %d", test, want, got))
}
