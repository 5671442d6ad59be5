package dataset

import (
	"fmt"

	"subpower/domain/core"
	"subpower/domain/power"
)

// IDGroup labels a set of observation identifiers inside a relational
// structure (e.g. the rows of a distance matrix belonging to one treatment)
type IDGroup struct {
	Label string `json:"label"`
	IDs   []int  `json:"ids"`
}

// Replicate is one simulation replicate produced by the external generation
// stage. Exactly one input shape is populated, matching what the test family
// expects: raw vectors for parametric tests, or identifier groups plus one or
// two relational structures for distance-based tests. Read-only after load.
type Replicate struct {
	Index     int               `json:"index"`
	Vectors   [][]float64       `json:"vectors,omitempty"`
	Groups    []IDGroup         `json:"groups,omitempty"`
	Distances *DistanceMatrix   `json:"distances,omitempty"`
	Paired    []*DistanceMatrix `json:"paired,omitempty"`
}

// Validate checks that the replicate carries exactly one usable input shape
func (r *Replicate) Validate() error {
	switch {
	case len(r.Vectors) > 0:
		for i, v := range r.Vectors {
			if len(v) == 0 {
				return core.NewValidationError("replicate", fmt.Sprintf("vector %d is empty", i))
			}
		}
		return nil
	case r.Distances != nil:
		if len(r.Groups) < 2 {
			return core.NewValidationError("replicate", "distance input needs at least two id groups")
		}
		n := r.Distances.Size()
		for _, g := range r.Groups {
			for _, id := range g.IDs {
				if id < 0 || id >= n {
					return core.NewValidationError("replicate",
						fmt.Sprintf("group %q id %d outside matrix of size %d", g.Label, id, n))
				}
			}
		}
		return nil
	case len(r.Paired) == 2:
		if r.Paired[0].Size() != r.Paired[1].Size() {
			return core.NewValidationError("replicate", "paired matrices differ in size")
		}
		return nil
	default:
		return core.NewValidationError("replicate", "no input shape populated")
	}
}

// VectorPool builds an independent pool over the raw vectors
func (r *Replicate) VectorPool() (*power.SamplePool, error) {
	groups := make([]power.Group, len(r.Vectors))
	for i, v := range r.Vectors {
		groups[i] = power.Group{Name: fmt.Sprintf("group_%d", i+1), Values: v}
	}
	return power.NewIndependentPool(groups...)
}

// PairedVectorPool builds a matched pool over the shared indices of two
// equal-length vectors (e.g. both sides of a correlation)
func (r *Replicate) PairedVectorPool() (*power.SamplePool, error) {
	if len(r.Vectors) != 2 {
		return nil, core.NewValidationError("replicate", "paired vector pool needs exactly two vectors")
	}
	if len(r.Vectors[0]) != len(r.Vectors[1]) {
		return nil, core.NewValidationError("replicate", "paired vectors differ in length")
	}
	ids := make([]int, len(r.Vectors[0]))
	for i := range ids {
		ids[i] = i
	}
	return power.NewMatchedPool(ids)
}

// IDPool builds an independent pool over the identifier groups of a
// relational structure
func (r *Replicate) IDPool() (*power.SamplePool, error) {
	groups := make([]power.Group, len(r.Groups))
	for i, g := range r.Groups {
		groups[i] = power.Group{Name: g.Label, IDs: g.IDs}
	}
	return power.NewIndependentPool(groups...)
}

// MatchedIDPool builds a matched pool over the shared identifiers of paired
// relational structures
func (r *Replicate) MatchedIDPool() (*power.SamplePool, error) {
	if len(r.Paired) != 2 {
		return nil, core.NewValidationError("replicate", "matched id pool needs exactly two paired matrices")
	}
	ids := make([]int, r.Paired[0].Size())
	for i := range ids {
		ids[i] = i
	}
	return power.NewMatchedPool(ids)
}

// TotalObservations returns the total observation count of the replicate
func (r *Replicate) TotalObservations() int {
	switch {
	case len(r.Vectors) > 0:
		total := 0
		for _, v := range r.Vectors {
			total += len(v)
		}
		return total
	case r.Distances != nil:
		return r.Distances.Size()
	case len(r.Paired) == 2:
		return r.Paired[0].Size()
	default:
		return 0
	}
}
