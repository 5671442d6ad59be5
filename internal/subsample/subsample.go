// Package subsample implements without-replacement subsampling over sample
// pools under the independent and matched draw modes. This is the inner
// engine every power estimate is built on: each call is a fresh uniform
// draw, never memoized, never replaced across iterations.
package subsample

import (
	"fmt"
	"math/rand"

	"subpower/domain/core"
	"subpower/domain/power"
)

// Draw selects a subsample of size count from the pool under the given mode.
//
// Independent mode selects count distinct observations uniformly at random
// from each group, with no shared randomness across groups. Matched mode
// selects one set of count distinct identifiers from the shared pool; the
// caller applies the same identifiers to every paired structure, preserving
// the pairing.
func Draw(pool *power.SamplePool, count int, mode power.DrawMode, rng *rand.Rand) (power.Subsample, error) {
	if !mode.Valid() {
		return power.Subsample{}, core.NewValidationError("draw_mode", string(mode))
	}
	if count < 1 {
		return power.Subsample{}, fmt.Errorf("%w: count %d", core.ErrInvalidCount, count)
	}

	if mode == power.DrawMatched {
		if !pool.Matched() {
			return power.Subsample{}, core.NewValidationError("sample_pool", "matched draw requires a matched pool")
		}
		if count > len(pool.Shared) {
			return power.Subsample{}, core.NewInvalidCountError(count, len(pool.Shared), "shared")
		}
		return power.Subsample{Shared: pickIDs(pool.Shared, count, rng)}, nil
	}

	if pool.Matched() {
		return power.Subsample{}, core.NewValidationError("sample_pool", "independent draw requires grouped pool")
	}

	sub := power.Subsample{}
	for _, g := range pool.Groups {
		if count > g.Size() {
			return power.Subsample{}, core.NewInvalidCountError(count, g.Size(), g.Name)
		}
		if g.ValueBacked() {
			sub.Vectors = append(sub.Vectors, pickValues(g.Values, count, rng))
		} else {
			sub.IDs = append(sub.IDs, pickIDs(g.IDs, count, rng))
		}
	}
	return sub, nil
}

// DrawBootstrap selects a subsample of size count with replacement. Only
// value-backed independent pools support this: resampling the same unit
// twice is meaningless when entries encode pairwise relations, so id-backed
// and matched pools refuse.
func DrawBootstrap(pool *power.SamplePool, count int, rng *rand.Rand) (power.Subsample, error) {
	if count < 1 {
		return power.Subsample{}, fmt.Errorf("%w: count %d", core.ErrInvalidCount, count)
	}
	if pool.Matched() {
		return power.Subsample{}, fmt.Errorf("%w: matched pool", core.ErrBootstrapUnsupported)
	}
	sub := power.Subsample{}
	for _, g := range pool.Groups {
		if !g.ValueBacked() {
			return power.Subsample{}, fmt.Errorf("%w: group %q is relational", core.ErrBootstrapUnsupported, g.Name)
		}
		if g.Size() == 0 {
			return power.Subsample{}, fmt.Errorf("%w: group %q", core.ErrEmptyPool, g.Name)
		}
		values := make([]float64, count)
		for i := range values {
			values[i] = g.Values[rng.Intn(len(g.Values))]
		}
		sub.Vectors = append(sub.Vectors, values)
	}
	return sub, nil
}

// pickIDs draws count distinct elements from ids uniformly without
// replacement using a partial Fisher-Yates over a copy. The source slice is
// never mutated.
func pickIDs(ids []int, count int, rng *rand.Rand) []int {
	scratch := make([]int, len(ids))
	copy(scratch, ids)
	for i := 0; i < count; i++ {
		j := i + rng.Intn(len(scratch)-i)
		scratch[i], scratch[j] = scratch[j], scratch[i]
	}
	return scratch[:count:count]
}

// pickValues draws count distinct observations from values uniformly without
// replacement
func pickValues(values []float64, count int, rng *rand.Rand) []float64 {
	scratch := make([]float64, len(values))
	copy(scratch, values)
	for i := 0; i < count; i++ {
		j := i + rng.Intn(len(scratch)-i)
		scratch[i], scratch[j] = scratch[j], scratch[i]
	}
	return scratch[:count:count]
}
