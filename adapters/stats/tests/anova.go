package tests

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"subpower/domain/core"
	"subpower/domain/power"
)

// Anova tests whether k independent groups share a mean (one-way fixed
// effects analysis of variance)
type Anova struct {
	Groups [][]float64
}

// NewAnova creates a one-way ANOVA over the full groups
func NewAnova(groups [][]float64) *Anova {
	return &Anova{Groups: groups}
}

// Name returns the test name
func (t *Anova) Name() string { return "anova" }

// Evaluate runs the test on the drawn vectors
func (t *Anova) Evaluate(ctx context.Context, sub power.Subsample) (float64, error) {
	if len(sub.Vectors) != len(t.Groups) {
		return 0, shapeError(t.Name(), fmt.Sprintf("%d vectors", len(t.Groups)), len(sub.Vectors))
	}
	return anovaP(sub.Vectors)
}

// EvaluateFull runs the test on the complete groups
func (t *Anova) EvaluateFull(ctx context.Context) (float64, error) {
	return anovaP(t.Groups)
}

func anovaP(groups [][]float64) (float64, error) {
	k := len(groups)
	if k < 2 {
		return 0, fmt.Errorf("%w: ANOVA needs at least 2 groups", core.ErrDegenerateSample)
	}

	total := 0
	grand := 0.0
	for _, g := range groups {
		if len(g) < 2 {
			return 0, fmt.Errorf("%w: ANOVA needs at least 2 per group", core.ErrDegenerateSample)
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
		return 0, core.ErrZeroVariance
	}

	df1 := float64(k - 1)
	df2 := float64(total - k)
	fStat := (ssBetween / df1) / (ssWithin / df2)

	dist := distuv.F{D1: df1, D2: df2}
	return dist.Survival(fStat), nil
}
