package app

import (
	"fmt"
	"math/rand"

	"subpower/adapters/stats/closedform"
	"subpower/adapters/stats/tests"
	"subpower/domain/core"
	"subpower/domain/dataset"
	"subpower/domain/power"
	"subpower/internal/errors"
	"subpower/ports"
)

// The closed set of test families. Each bundles a draw mode, a statistical
// test, and an optional closed-form power formula; the set is assembled at
// start-up from explicit configuration, never extended at runtime.
const (
	FamilyOneSampleT   core.FamilyName = "one_sample_t"
	FamilyIndependentT core.FamilyName = "independent_t"
	FamilyWelchT       core.FamilyName = "welch_t"
	FamilyAnova        core.FamilyName = "anova"
	FamilyCorrelation  core.FamilyName = "correlation"
	FamilyPermanova    core.FamilyName = "permanova"
	FamilyMantel       core.FamilyName = "mantel"
)

// FamilyConfig carries the start-up parameters family bindings need
type FamilyConfig struct {
	Permutations int
	Mu0          float64
}

// Bound is one family bound to one replicate's data: the test over the full
// sample, the pool subsamples are drawn from, and the optional closed form
type Bound struct {
	Test       ports.StatisticalTest
	Pool       *power.SamplePool
	ClosedForm ports.ClosedFormPower
}

// Family describes one member of the closed test-family set
type Family struct {
	Name core.FamilyName
	Mode power.DrawMode

	// AllowsBootstrap marks the purely independent vector families where
	// with-replacement sampling is meaningful
	AllowsBootstrap bool

	bind func(rep *dataset.Replicate, rng *rand.Rand, cfg FamilyConfig) (*Bound, error)
}

// Bind adapts one replicate's data into this family's test, pool and
// optional closed form
func (f Family) Bind(rep *dataset.Replicate, rng *rand.Rand, cfg FamilyConfig) (*Bound, error) {
	if err := rep.Validate(); err != nil {
		return nil, err
	}
	return f.bind(rep, rng, cfg)
}

// Registry holds the families selected for a batch, in configuration order
type Registry struct {
	families []Family
	cfg      FamilyConfig
}

// NewRegistry resolves family names from configuration into the closed set
func NewRegistry(names []string, cfg FamilyConfig) (*Registry, error) {
	if cfg.Permutations < 1 {
		return nil, errors.ConfigInvalid("permutation depth must be at least 1")
	}
	families := make([]Family, 0, len(names))
	for _, name := range names {
		family, ok := allFamilies[core.FamilyName(name)]
		if !ok {
			return nil, errors.ConfigInvalid(fmt.Sprintf("unknown test family %q", name))
		}
		families = append(families, family)
	}
	return &Registry{families: families, cfg: cfg}, nil
}

// Families returns the selected families
func (r *Registry) Families() []Family {
	return r.families
}

// Config returns the family configuration
func (r *Registry) Config() FamilyConfig {
	return r.cfg
}

// Lookup finds one family by name
func (r *Registry) Lookup(name core.FamilyName) (Family, error) {
	for _, f := range r.families {
		if f.Name == name {
			return f, nil
		}
	}
	return Family{}, core.ErrFamilyNotFound
}

var allFamilies = map[core.FamilyName]Family{
	FamilyOneSampleT: {
		Name:            FamilyOneSampleT,
		Mode:            power.DrawIndependent,
		AllowsBootstrap: true,
		bind: func(rep *dataset.Replicate, _ *rand.Rand, cfg FamilyConfig) (*Bound, error) {
			if len(rep.Vectors) != 1 {
				return nil, core.NewValidationError("replicate", "one-sample t expects one vector")
			}
			pool, err := rep.VectorPool()
			if err != nil {
				return nil, err
			}
			cf, err := closedform.NewOneSampleT(rep.Vectors[0], cfg.Mu0)
			if err != nil {
				return nil, err
			}
			return &Bound{
				Test:       tests.NewOneSampleT(rep.Vectors[0], cfg.Mu0),
				Pool:       pool,
				ClosedForm: cf,
			}, nil
		},
	},
	FamilyIndependentT: {
		Name:            FamilyIndependentT,
		Mode:            power.DrawIndependent,
		AllowsBootstrap: true,
		bind: func(rep *dataset.Replicate, _ *rand.Rand, _ FamilyConfig) (*Bound, error) {
			if len(rep.Vectors) != 2 {
				return nil, core.NewValidationError("replicate", "independent t expects two vectors")
			}
			pool, err := rep.VectorPool()
			if err != nil {
				return nil, err
			}
			cf, err := closedform.NewTwoSampleT(rep.Vectors[0], rep.Vectors[1])
			if err != nil {
				return nil, err
			}
			return &Bound{
				Test:       tests.NewIndependentT(rep.Vectors[0], rep.Vectors[1]),
				Pool:       pool,
				ClosedForm: cf,
			}, nil
		},
	},
	FamilyWelchT: {
		Name:            FamilyWelchT,
		Mode:            power.DrawIndependent,
		AllowsBootstrap: true,
		bind: func(rep *dataset.Replicate, _ *rand.Rand, _ FamilyConfig) (*Bound, error) {
			if len(rep.Vectors) != 2 {
				return nil, core.NewValidationError("replicate", "Welch t expects two vectors")
			}
			pool, err := rep.VectorPool()
			if err != nil {
				return nil, err
			}
			cf, err := closedform.NewTwoSampleT(rep.Vectors[0], rep.Vectors[1])
			if err != nil {
				return nil, err
			}
			return &Bound{
				Test:       tests.NewWelchT(rep.Vectors[0], rep.Vectors[1]),
				Pool:       pool,
				ClosedForm: cf,
			}, nil
		},
	},
	FamilyAnova: {
		Name:            FamilyAnova,
		Mode:            power.DrawIndependent,
		AllowsBootstrap: true,
		bind: func(rep *dataset.Replicate, _ *rand.Rand, _ FamilyConfig) (*Bound, error) {
			if len(rep.Vectors) < 2 {
				return nil, core.NewValidationError("replicate", "ANOVA expects at least two vectors")
			}
			pool, err := rep.VectorPool()
			if err != nil {
				return nil, err
			}
			cf, err := closedform.NewAnova(rep.Vectors)
			if err != nil {
				return nil, err
			}
			return &Bound{
				Test:       tests.NewAnova(rep.Vectors),
				Pool:       pool,
				ClosedForm: cf,
			}, nil
		},
	},
	FamilyCorrelation: {
		Name: FamilyCorrelation,
		Mode: power.DrawMatched,
		bind: func(rep *dataset.Replicate, _ *rand.Rand, _ FamilyConfig) (*Bound, error) {
			if len(rep.Vectors) != 2 {
				return nil, core.NewValidationError("replicate", "correlation expects two vectors")
			}
			pool, err := rep.PairedVectorPool()
			if err != nil {
				return nil, err
			}
			test, err := tests.NewCorrelation(rep.Vectors[0], rep.Vectors[1])
			if err != nil {
				return nil, err
			}
			cf, err := closedform.NewCorrelation(rep.Vectors[0], rep.Vectors[1])
			if err != nil {
				return nil, err
			}
			return &Bound{Test: test, Pool: pool, ClosedForm: cf}, nil
		},
	},
	FamilyPermanova: {
		Name: FamilyPermanova,
		Mode: power.DrawIndependent,
		bind: func(rep *dataset.Replicate, rng *rand.Rand, cfg FamilyConfig) (*Bound, error) {
			if rep.Distances == nil {
				return nil, core.NewValidationError("replicate", "PERMANOVA expects a distance matrix with groups")
			}
			pool, err := rep.IDPool()
			if err != nil {
				return nil, err
			}
			return &Bound{
				Test: tests.NewPermanova(rep.Distances, rep.Groups, cfg.Permutations, rng),
				Pool: pool,
			}, nil
		},
	},
	FamilyMantel: {
		Name: FamilyMantel,
		Mode: power.DrawMatched,
		bind: func(rep *dataset.Replicate, rng *rand.Rand, cfg FamilyConfig) (*Bound, error) {
			if len(rep.Paired) != 2 {
				return nil, core.NewValidationError("replicate", "Mantel expects two paired matrices")
			}
			pool, err := rep.MatchedIDPool()
			if err != nil {
				return nil, err
			}
			test, err := tests.NewMantel(rep.Paired[0], rep.Paired[1], cfg.Permutations, rng)
			if err != nil {
				return nil, err
			}
			return &Bound{Test: test, Pool: pool}, nil
		},
	},
}
