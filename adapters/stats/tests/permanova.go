package tests

import (
	"context"
	"fmt"
	"math/rand"

	"subpower/domain/core"
	"subpower/domain/dataset"
	"subpower/domain/power"
)

// Permanova tests whether groups of observations differ in their pairwise
// distances (permutational multivariate analysis of variance). It is
// permutation-based: the p-value is the fraction of label shufflings whose
// pseudo-F meets or beats the observed one.
type Permanova struct {
	Dist         *dataset.DistanceMatrix
	Groups       []dataset.IDGroup
	Permutations int

	rng *rand.Rand
}

// NewPermanova creates a PERMANOVA over the full distance matrix and grouping
func NewPermanova(dist *dataset.DistanceMatrix, groups []dataset.IDGroup, permutations int, rng *rand.Rand) *Permanova {
	return &Permanova{Dist: dist, Groups: groups, Permutations: permutations, rng: rng}
}

// Name returns the test name
func (t *Permanova) Name() string { return "permanova" }

// Evaluate filters the distance matrix to the drawn identifiers (one set per
// group) and runs the permutation test
func (t *Permanova) Evaluate(ctx context.Context, sub power.Subsample) (float64, error) {
	if len(sub.IDs) != len(t.Groups) {
		return 0, shapeError(t.Name(), fmt.Sprintf("%d id groups", len(t.Groups)), len(sub.IDs))
	}
	return t.run(ctx, sub.IDs)
}

// EvaluateFull runs the permutation test over all identifiers
func (t *Permanova) EvaluateFull(ctx context.Context) (float64, error) {
	ids := make([][]int, len(t.Groups))
	for i, g := range t.Groups {
		ids[i] = g.IDs
	}
	return t.run(ctx, ids)
}

func (t *Permanova) run(ctx context.Context, groupIDs [][]int) (float64, error) {
	var flat []int
	var assign []int
	for gi, ids := range groupIDs {
		for _, id := range ids {
			flat = append(flat, id)
			assign = append(assign, gi)
		}
	}

	filtered, err := t.Dist.Filter(flat)
	if err != nil {
		return 0, err
	}

	observed, err := pseudoF(filtered, assign, len(groupIDs))
	if err != nil {
		return 0, err
	}

	// Permute group assignments over the filtered observations; the
	// distance entries themselves never move
	perm := make([]int, len(assign))
	copy(perm, assign)
	atLeast := 1 // the observed labelling counts as one permutation
	for i := 0; i < t.Permutations; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		t.rng.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
		f, err := pseudoF(filtered, perm, len(groupIDs))
		if err != nil {
			return 0, err
		}
		if f >= observed {
			atLeast++
		}
	}

	return float64(atLeast) / float64(t.Permutations+1), nil
}

// pseudoF computes the PERMANOVA pseudo-F statistic for a filtered distance
// matrix under a group assignment
func pseudoF(m *dataset.DistanceMatrix, assign []int, numGroups int) (float64, error) {
	n := m.Size()
	if numGroups < 2 {
		return 0, fmt.Errorf("%w: PERMANOVA needs at least 2 groups", core.ErrDegenerateSample)
	}

	sizes := make([]float64, numGroups)
	for _, g := range assign {
		sizes[g]++
	}
	for g, s := range sizes {
		if s < 2 {
			return 0, fmt.Errorf("%w: PERMANOVA group %d has fewer than 2 observations", core.ErrDegenerateSample, g)
		}
	}

	var ssTotal float64
	ssWithinByGroup := make([]float64, numGroups)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d2 := m.At(i, j) * m.At(i, j)
			ssTotal += d2
			if assign[i] == assign[j] {
				ssWithinByGroup[assign[i]] += d2
			}
		}
	}
	ssTotal /= float64(n)

	var ssWithin float64
	for g, ss := range ssWithinByGroup {
		ssWithin += ss / sizes[g]
	}

	if ssWithin == 0 {
		return 0, fmt.Errorf("%w: zero within-group dispersion", core.ErrDegenerateSample)
	}

	ssAmong := ssTotal - ssWithin
	df1 := float64(numGroups - 1)
	df2 := float64(n - numGroups)
	return (ssAmong / df1) / (ssWithin / df2), nil
}
