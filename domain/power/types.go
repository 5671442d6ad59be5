package power

import (
	"fmt"

	"subpower/domain/core"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// DrawMode is the policy governing how a subsample is drawn from a pool
type DrawMode string

const (
	// DrawIndependent draws a count of observations independently from
	// each group in the pool, with no shared randomness across groups
	DrawIndependent DrawMode = "independent"

	// DrawMatched draws a single set of identifiers shared across all
	// paired structures, preserving the pairing relation
	DrawMatched DrawMode = "matched"
)

// Valid reports whether the mode is one of the known draw modes
func (m DrawMode) Valid() bool {
	return m == DrawIndependent || m == DrawMatched
}

// Group is one named set of observations inside a SamplePool. A group is
// backed either by raw values (parametric tests) or by identifiers into an
// underlying structure such as a distance matrix (relational tests).
type Group struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values,omitempty"`
	IDs    []int     `json:"ids,omitempty"`
}

// Size returns the number of observations in the group
func (g Group) Size() int {
	if g.Values != nil {
		return len(g.Values)
	}
	return len(g.IDs)
}

// ValueBacked reports whether the group holds raw values rather than identifiers
func (g Group) ValueBacked() bool {
	return g.Values != nil
}

// SamplePool is an immutable view over the observations subsamples are drawn
// from. For independent mode it holds one or more non-overlapping groups; for
// matched mode it holds a single pool of identifiers shared across paired
// structures. Constructed once per simulation replicate, read-only thereafter.
type SamplePool struct {
	Groups []Group `json:"groups,omitempty"`
	Shared []int   `json:"shared,omitempty"`
}

// NewIndependentPool builds a pool of independent groups
func NewIndependentPool(groups ...Group) (*SamplePool, error) {
	p := &SamplePool{Groups: groups}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewMatchedPool builds a pool of paired identifiers shared across structures
func NewMatchedPool(ids []int) (*SamplePool, error) {
	p := &SamplePool{Shared: ids}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Matched reports whether the pool holds a shared identifier set
func (p *SamplePool) Matched() bool {
	return p.Shared != nil
}

// MinGroupSize returns the smallest group size, or the shared pool size for
// matched pools. Zero means the pool is empty.
func (p *SamplePool) MinGroupSize() int {
	if p.Matched() {
		return len(p.Shared)
	}
	min := 0
	for i, g := range p.Groups {
		if i == 0 || g.Size() < min {
			min = g.Size()
		}
	}
	return min
}

// TotalObservations returns the total observation count across the pool
func (p *SamplePool) TotalObservations() int {
	if p.Matched() {
		return len(p.Shared)
	}
	total := 0
	for _, g := range p.Groups {
		total += g.Size()
	}
	return total
}

// Validate enforces the pool invariants: at least one non-empty group (or a
// non-empty shared set), and no identifier appearing in two groups
func (p *SamplePool) Validate() error {
	if p.Matched() {
		if len(p.Shared) == 0 {
			return core.ErrEmptyPool
		}
		if len(p.Groups) > 0 {
			return core.NewValidationError("sample_pool", "matched pool cannot also carry groups")
		}
		return nil
	}
	if len(p.Groups) == 0 {
		return core.ErrEmptyPool
	}
	seen := make(map[int]string)
	for _, g := range p.Groups {
		if g.Size() == 0 {
			return fmt.Errorf("%w: group %q", core.ErrEmptyPool, g.Name)
		}
		for _, id := range g.IDs {
			if other, ok := seen[id]; ok {
				return fmt.Errorf("%w: id %d in %q and %q", core.ErrOverlappingGroups, id, other, g.Name)
			}
			seen[id] = g.Name
		}
	}
	return nil
}

// Subsample is the result of a single draw. Exactly one of the field sets is
// populated, mirroring the backing of the pool it was drawn from.
type Subsample struct {
	// Vectors holds drawn raw values, one slice per group in pool order
	Vectors [][]float64
	// IDs holds drawn identifiers, one slice per group in pool order
	IDs [][]int
	// Shared holds the single drawn identifier set in matched mode
	Shared []int
}
