package tests

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"subpower/domain/core"
	"subpower/domain/dataset"
	"subpower/domain/power"
)

// Mantel tests whether two paired distance matrices are correlated. The draw
// mode is matched: one identifier set filters both matrices so their
// condensed vectors stay aligned. The p-value is permutational, from
// reordering one matrix's observations.
type Mantel struct {
	A            *dataset.DistanceMatrix
	B            *dataset.DistanceMatrix
	Permutations int

	rng *rand.Rand
}

// NewMantel creates a Mantel test over two full paired matrices
func NewMantel(a, b *dataset.DistanceMatrix, permutations int, rng *rand.Rand) (*Mantel, error) {
	if a.Size() != b.Size() {
		return nil, core.NewValidationError("mantel", "paired matrices differ in size")
	}
	return &Mantel{A: a, B: b, Permutations: permutations, rng: rng}, nil
}

// Name returns the test name
func (t *Mantel) Name() string { return "mantel" }

// Evaluate filters both matrices to the shared drawn identifiers and runs
// the permutation test
func (t *Mantel) Evaluate(ctx context.Context, sub power.Subsample) (float64, error) {
	if sub.Shared == nil {
		return 0, shapeError(t.Name(), "shared identifiers", len(sub.IDs))
	}
	return t.run(ctx, sub.Shared)
}

// EvaluateFull runs the permutation test over all observations
func (t *Mantel) EvaluateFull(ctx context.Context) (float64, error) {
	ids := make([]int, t.A.Size())
	for i := range ids {
		ids[i] = i
	}
	return t.run(ctx, ids)
}

func (t *Mantel) run(ctx context.Context, ids []int) (float64, error) {
	if len(ids) < 3 {
		return 0, fmt.Errorf("%w: Mantel needs at least 3 observations", core.ErrDegenerateSample)
	}

	a, err := t.A.Filter(ids)
	if err != nil {
		return 0, err
	}
	b, err := t.B.Filter(ids)
	if err != nil {
		return 0, err
	}

	condA := a.Condensed()
	observed, err := mantelR(condA, b.Condensed())
	if err != nil {
		return 0, err
	}

	// Permute the observation order of B only; filtering with a shuffled
	// identifier list reorders rows and columns together
	perm := make([]int, len(ids))
	for i := range perm {
		perm[i] = i
	}
	atLeast := 1
	absObserved := math.Abs(observed)
	for i := 0; i < t.Permutations; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		t.rng.Shuffle(len(perm), func(x, y int) { perm[x], perm[y] = perm[y], perm[x] })
		shuffled, err := b.Filter(perm)
		if err != nil {
			return 0, err
		}
		r, err := mantelR(condA, shuffled.Condensed())
		if err != nil {
			return 0, err
		}
		if math.Abs(r) >= absObserved {
			atLeast++
		}
	}

	return float64(atLeast) / float64(t.Permutations+1), nil
}

func mantelR(condA, condB []float64) (float64, error) {
	r := stat.Correlation(condA, condB, nil)
	if math.IsNaN(r) {
		return 0, fmt.Errorf("%w: constant distances", core.ErrZeroVariance)
	}
	return r, nil
}
