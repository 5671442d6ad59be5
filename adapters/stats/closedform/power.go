// Package closedform computes traditional distribution-based power curves
// from the full, un-subsampled sample. These are the analytical counterparts
// the empirical curves are compared against; the permutation-based families
// have no closed form and simply carry none.
package closedform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"subpower/domain/core"
	"subpower/domain/power"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// TwoSampleT computes power for the two-sample t-test from the observed
// standardized effect (Cohen's d), using the normal approximation to the
// noncentral t distribution
type TwoSampleT struct {
	EffectSize float64
}

// NewTwoSampleT estimates Cohen's d from the full groups
func NewTwoSampleT(g1, g2 []float64) (*TwoSampleT, error) {
	d, err := cohensD(g1, g2)
	if err != nil {
		return nil, err
	}
	return &TwoSampleT{EffectSize: d}, nil
}

// Compute returns the power at each count (per-group sample size)
func (c *TwoSampleT) Compute(counts power.CountsSchedule, alpha float64) ([]float64, error) {
	if err := counts.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, len(counts))
	for i, n := range counts {
		delta := math.Abs(c.EffectSize) * math.Sqrt(float64(n)/2)
		out[i] = twoSidedNormalPower(delta, alpha)
	}
	return out, nil
}

// OneSampleT computes power for the one-sample t-test against mu0
type OneSampleT struct {
	EffectSize float64
}

// NewOneSampleT estimates the standardized shift from the full vector
func NewOneSampleT(values []float64, mu0 float64) (*OneSampleT, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations", core.ErrDegenerateSample)
	}
	mean, sd := stat.MeanStdDev(values, nil)
	if sd == 0 {
		return nil, core.ErrZeroVariance
	}
	return &OneSampleT{EffectSize: (mean - mu0) / sd}, nil
}

// Compute returns the power at each count
func (c *OneSampleT) Compute(counts power.CountsSchedule, alpha float64) ([]float64, error) {
	if err := counts.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, len(counts))
	for i, n := range counts {
		delta := math.Abs(c.EffectSize) * math.Sqrt(float64(n))
		out[i] = twoSidedNormalPower(delta, alpha)
	}
	return out, nil
}

// Anova computes power for one-way ANOVA from the observed Cohen's f,
// using the Patnaik approximation to the noncentral F distribution
type Anova struct {
	EffectSize float64 // Cohen's f
	NumGroups  int
}

// NewAnova estimates Cohen's f from the full groups
func NewAnova(groups [][]float64) (*Anova, error) {
	k := len(groups)
	if k < 2 {
		return nil, fmt.Errorf("%w: need at least 2 groups", core.ErrDegenerateSample)
	}
	total := 0
	grand := 0.0
	for _, g := range groups {
		if len(g) < 2 {
			return nil, fmt.Errorf("%w: need at least 2 per group", core.ErrDegenerateSample)
		}
		total += len(g)
		for _, v := range g {
			grand += v
		}
	}
	grand /= float64(total)

	ssBetween, ssWithin := 0.0, 0.0
	for _, g := range groups {
		mean := stat.Mean(g, nil)
		d := mean - grand
		ssBetween += d * d * float64(len(g))
		for _, v := range g {
			ssWithin += (v - mean) * (v - mean)
		}
	}
	if ssWithin == 0 {
		return nil, core.ErrZeroVariance
	}

	f := math.Sqrt((ssBetween / float64(total)) / (ssWithin / float64(total)))
	return &Anova{EffectSize: f, NumGroups: k}, nil
}

// Compute returns the power at each count (per-group sample size)
func (c *Anova) Compute(counts power.CountsSchedule, alpha float64) ([]float64, error) {
	if err := counts.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, len(counts))
	df1 := float64(c.NumGroups - 1)
	for i, n := range counts {
		totalN := float64(n * c.NumGroups)
		df2 := totalN - float64(c.NumGroups)
		if df2 < 1 {
			out[i] = alpha
			continue
		}
		lambda := c.EffectSize * c.EffectSize * totalN
		central := distuv.F{D1: df1, D2: df2}
		crit := central.Quantile(1 - alpha)

		// Patnaik: noncentral F(df1, df2, lambda) is approximated by a
		// scaled central F with adjusted numerator degrees of freedom
		h := (df1 + lambda) * (df1 + lambda) / (df1 + 2*lambda)
		approx := distuv.F{D1: h, D2: df2}
		out[i] = approx.Survival(crit * df1 / (df1 + lambda))
	}
	return out, nil
}

// Correlation computes power for the Pearson correlation test via the
// Fisher z transform
type Correlation struct {
	R float64
}

// NewCorrelation estimates the population correlation from the full pairs
func NewCorrelation(x, y []float64) (*Correlation, error) {
	if len(x) != len(y) || len(x) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 pairs", core.ErrDegenerateSample)
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return nil, core.ErrZeroVariance
	}
	return &Correlation{R: r}, nil
}

// Compute returns the power at each count (number of pairs)
func (c *Correlation) Compute(counts power.CountsSchedule, alpha float64) ([]float64, error) {
	if err := counts.Validate(); err != nil {
		return nil, err
	}
	z := math.Abs(fisherZ(c.R))
	out := make([]float64, len(counts))
	for i, n := range counts {
		if n < 4 {
			out[i] = alpha
			continue
		}
		delta := z * math.Sqrt(float64(n-3))
		out[i] = twoSidedNormalPower(delta, alpha)
	}
	return out, nil
}

func fisherZ(r float64) float64 {
	// clamp away from the poles to keep the transform finite
	if r >= 1 {
		r = 1 - 1e-12
	}
	if r <= -1 {
		r = -1 + 1e-12
	}
	return 0.5 * math.Log((1+r)/(1-r))
}

// twoSidedNormalPower is the standard two-sided power approximation: the
// probability a Normal(delta,1) statistic exceeds the alpha/2 critical
// bounds. At delta 0 it returns exactly alpha.
func twoSidedNormalPower(delta, alpha float64) float64 {
	crit := stdNormal.Quantile(1 - alpha/2)
	return stdNormal.CDF(delta-crit) + stdNormal.CDF(-delta-crit)
}

func cohensD(g1, g2 []float64) (float64, error) {
	n1, n2 := float64(len(g1)), float64(len(g2))
	if len(g1) < 2 || len(g2) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 per group", core.ErrDegenerateSample)
	}
	m1, sd1 := stat.MeanStdDev(g1, nil)
	m2, sd2 := stat.MeanStdDev(g2, nil)
	pooled := math.Sqrt(((n1-1)*sd1*sd1 + (n2-1)*sd2*sd2) / (n1 + n2 - 2))
	if pooled == 0 {
		return 0, core.ErrZeroVariance
	}
	return (m1 - m2) / pooled, nil
}
