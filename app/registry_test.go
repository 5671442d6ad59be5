package app

import (
	"context"
	"math/rand"
	"testing"

	"subpower/domain/dataset"
	"subpower/domain/power"
	"subpower/internal/testkit"
)

func TestRegistrySelectsConfiguredFamilies(t *testing.T) {
	registry, err := NewRegistry([]string{"independent_t", "mantel"}, FamilyConfig{Permutations: 99})
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	families := registry.Families()
	if len(families) != 2 {
		t.Fatalf("expected 2 families, got %d", len(families))
	}
	if families[0].Name != FamilyIndependentT || families[1].Name != FamilyMantel {
		t.Errorf("families out of configuration order: %v, %v", families[0].Name, families[1].Name)
	}
	if _, err := registry.Lookup(FamilyMantel); err != nil {
		t.Errorf("lookup of selected family failed: %v", err)
	}
	if _, err := registry.Lookup(FamilyAnova); err == nil {
		t.Error("lookup of unselected family should fail")
	}
}

func TestRegistryRejectsBadConfig(t *testing.T) {
	if _, err := NewRegistry([]string{"independent_t"}, FamilyConfig{Permutations: 0}); err == nil {
		t.Error("zero permutation depth should be rejected")
	}
	if _, err := NewRegistry([]string{"nope"}, FamilyConfig{Permutations: 99}); err == nil {
		t.Error("unknown family should be rejected")
	}
}

func TestFamilyBindVectorFamilies(t *testing.T) {
	gen := rand.New(rand.NewSource(3))
	cfg := FamilyConfig{Permutations: 99}

	cases := []struct {
		family  Family
		vectors [][]float64
		mode    power.DrawMode
		closed  bool
		canBoot bool
	}{
		{allFamilies[FamilyOneSampleT], testkit.NormalGroups(gen, 20, 1, 0.5), power.DrawIndependent, true, true},
		{allFamilies[FamilyIndependentT], testkit.NormalGroups(gen, 20, 1, 0, 1), power.DrawIndependent, true, true},
		{allFamilies[FamilyWelchT], testkit.NormalGroups(gen, 20, 1, 0, 1), power.DrawIndependent, true, true},
		{allFamilies[FamilyAnova], testkit.NormalGroups(gen, 20, 1, 0, 1, 2), power.DrawIndependent, true, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.family.Name), func(t *testing.T) {
			bound, err := tc.family.Bind(&dataset.Replicate{Vectors: tc.vectors}, gen, cfg)
			if err != nil {
				t.Fatalf("bind failed: %v", err)
			}
			if tc.family.Mode != tc.mode {
				t.Errorf("mode = %v, want %v", tc.family.Mode, tc.mode)
			}
			if tc.family.AllowsBootstrap != tc.canBoot {
				t.Errorf("bootstrap flag = %v, want %v", tc.family.AllowsBootstrap, tc.canBoot)
			}
			if (bound.ClosedForm != nil) != tc.closed {
				t.Errorf("closed form presence = %v, want %v", bound.ClosedForm != nil, tc.closed)
			}
			if bound.Pool.MinGroupSize() != 20 {
				t.Errorf("pool min group size = %d", bound.Pool.MinGroupSize())
			}
			p, err := bound.Test.EvaluateFull(context.Background())
			if err != nil {
				t.Fatalf("full evaluation failed: %v", err)
			}
			if p < 0 || p > 1 {
				t.Errorf("p outside [0,1]: %v", p)
			}
		})
	}
}

func TestFamilyBindCorrelationIsMatched(t *testing.T) {
	gen := rand.New(rand.NewSource(5))
	x, y := testkit.CorrelatedPairs(gen, 30, 0.7)
	family := allFamilies[FamilyCorrelation]
	bound, err := family.Bind(&dataset.Replicate{Vectors: [][]float64{x, y}}, gen, FamilyConfig{Permutations: 99})
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if family.Mode != power.DrawMatched {
		t.Errorf("correlation must draw matched, got %v", family.Mode)
	}
	if family.AllowsBootstrap {
		t.Error("matched families must not allow bootstrap")
	}
	if !bound.Pool.Matched() {
		t.Error("correlation pool should be matched")
	}
	if bound.ClosedForm == nil {
		t.Error("correlation has a Fisher-z closed form")
	}
}

func TestFamilyBindDistanceFamilies(t *testing.T) {
	gen := rand.New(rand.NewSource(9))

	t.Run("permanova", func(t *testing.T) {
		rep := testkit.ClusteredDistanceReplicate(gen, 15, [2]float64{0, 0}, [2]float64{10, 10})
		family := allFamilies[FamilyPermanova]
		bound, err := family.Bind(rep, gen, FamilyConfig{Permutations: 49})
		if err != nil {
			t.Fatalf("bind failed: %v", err)
		}
		if bound.ClosedForm != nil {
			t.Error("permutation tests have no closed form")
		}
		if family.Mode != power.DrawIndependent {
			t.Errorf("mode = %v", family.Mode)
		}
		p, err := bound.Test.EvaluateFull(context.Background())
		if err != nil {
			t.Fatalf("full evaluation failed: %v", err)
		}
		if p > 0.05 {
			t.Errorf("separated clusters should reject, p = %v", p)
		}
	})

	t.Run("mantel", func(t *testing.T) {
		points := testkit.ClusteredPoints(gen, 10, [2]float64{0, 0}, [2]float64{5, 5})
		m := testkit.EuclideanDistances(points)
		rep := &dataset.Replicate{Paired: []*dataset.DistanceMatrix{m, m}}
		family := allFamilies[FamilyMantel]
		bound, err := family.Bind(rep, gen, FamilyConfig{Permutations: 49})
		if err != nil {
			t.Fatalf("bind failed: %v", err)
		}
		if bound.ClosedForm != nil {
			t.Error("permutation tests have no closed form")
		}
		if family.Mode != power.DrawMatched {
			t.Errorf("mode = %v", family.Mode)
		}
	})
}

func TestFamilyBindRejectsWrongShape(t *testing.T) {
	gen := rand.New(rand.NewSource(1))
	cfg := FamilyConfig{Permutations: 99}
	vectors := testkit.NormalGroups(gen, 10, 1, 0, 1, 2)

	if _, err := allFamilies[FamilyIndependentT].Bind(&dataset.Replicate{Vectors: vectors}, gen, cfg); err == nil {
		t.Error("independent t should reject three vectors")
	}
	if _, err := allFamilies[FamilyOneSampleT].Bind(&dataset.Replicate{Vectors: vectors}, gen, cfg); err == nil {
		t.Error("one-sample t should reject three vectors")
	}
	if _, err := allFamilies[FamilyPermanova].Bind(&dataset.Replicate{Vectors: vectors[:2]}, gen, cfg); err == nil {
		t.Error("permanova needs a distance matrix")
	}
}
