package tests

import (
	"context"
	"math/rand"
	"testing"

	"subpower/domain/power"
	"subpower/internal/subsample"
	"subpower/internal/testkit"
)

func TestPermanova(t *testing.T) {
	ctx := context.Background()

	t.Run("separated clusters give small p", func(t *testing.T) {
		gen := rand.New(rand.NewSource(42))
		rep := testkit.ClusteredDistanceReplicate(gen, 15, [2]float64{0, 0}, [2]float64{50, 50})

		test := NewPermanova(rep.Distances, rep.Groups, 99, rand.New(rand.NewSource(1)))
		p, err := test.EvaluateFull(ctx)
		if err != nil {
			t.Fatalf("evaluate failed: %v", err)
		}
		if p > 0.05 {
			t.Errorf("expected small p for separated clusters, got %g", p)
		}
	})

	t.Run("subsampled evaluation stays valid", func(t *testing.T) {
		gen := rand.New(rand.NewSource(43))
		rep := testkit.ClusteredDistanceReplicate(gen, 20, [2]float64{0, 0}, [2]float64{50, 50})

		pool, err := rep.IDPool()
		if err != nil {
			t.Fatalf("building pool: %v", err)
		}
		sub, err := subsample.Draw(pool, 8, power.DrawIndependent, rand.New(rand.NewSource(2)))
		if err != nil {
			t.Fatalf("draw failed: %v", err)
		}

		test := NewPermanova(rep.Distances, rep.Groups, 99, rand.New(rand.NewSource(3)))
		p, err := test.Evaluate(ctx, sub)
		if err != nil {
			t.Fatalf("evaluate failed: %v", err)
		}
		if p < 0 || p > 1 {
			t.Errorf("p outside [0,1]: %g", p)
		}
		if p > 0.05 {
			t.Errorf("expected small p even at count 8 for wide separation, got %g", p)
		}
	})

	t.Run("tiny group is degenerate", func(t *testing.T) {
		gen := rand.New(rand.NewSource(44))
		rep := testkit.ClusteredDistanceReplicate(gen, 5, [2]float64{0, 0}, [2]float64{5, 5})

		test := NewPermanova(rep.Distances, rep.Groups, 9, rand.New(rand.NewSource(4)))
		_, err := test.Evaluate(ctx, power.Subsample{IDs: [][]int{{0}, {5}}})
		if err == nil {
			t.Fatal("expected degenerate-sample error for a one-member group")
		}
	})
}

func TestMantel(t *testing.T) {
	ctx := context.Background()

	t.Run("matrix against itself gives minimal p", func(t *testing.T) {
		gen := rand.New(rand.NewSource(45))
		points := testkit.ClusteredPoints(gen, 20, [2]float64{0, 0})
		m := testkit.EuclideanDistances(points)

		test, err := NewMantel(m, m, 99, rand.New(rand.NewSource(5)))
		if err != nil {
			t.Fatalf("constructor failed: %v", err)
		}
		p, err := test.EvaluateFull(ctx)
		if err != nil {
			t.Fatalf("evaluate failed: %v", err)
		}
		if p > 0.05 {
			t.Errorf("expected small p for self-correlated matrices, got %g", p)
		}
	})

	t.Run("matched subsample filters both matrices", func(t *testing.T) {
		gen := rand.New(rand.NewSource(46))
		points := testkit.ClusteredPoints(gen, 30, [2]float64{0, 0})
		m := testkit.EuclideanDistances(points)

		test, err := NewMantel(m, m, 99, rand.New(rand.NewSource(6)))
		if err != nil {
			t.Fatalf("constructor failed: %v", err)
		}

		ids := make([]int, 30)
		for i := range ids {
			ids[i] = i
		}
		pool, err := power.NewMatchedPool(ids)
		if err != nil {
			t.Fatalf("building pool: %v", err)
		}
		sub, err := subsample.Draw(pool, 12, power.DrawMatched, rand.New(rand.NewSource(7)))
		if err != nil {
			t.Fatalf("draw failed: %v", err)
		}

		p, err := test.Evaluate(ctx, sub)
		if err != nil {
			t.Fatalf("evaluate failed: %v", err)
		}
		if p > 0.05 {
			t.Errorf("expected small p for paired self-correlation, got %g", p)
		}
	})

	t.Run("size mismatch rejected", func(t *testing.T) {
		gen := rand.New(rand.NewSource(47))
		a := testkit.EuclideanDistances(testkit.ClusteredPoints(gen, 5, [2]float64{0, 0}))
		b := testkit.EuclideanDistances(testkit.ClusteredPoints(gen, 6, [2]float64{0, 0}))
		if _, err := NewMantel(a, b, 9, rand.New(rand.NewSource(8))); err == nil {
			t.Fatal("expected size validation error")
		}
	})

	t.Run("too few observations is an error", func(t *testing.T) {
		gen := rand.New(rand.NewSource(48))
		m := testkit.EuclideanDistances(testkit.ClusteredPoints(gen, 5, [2]float64{0, 0}))
		test, err := NewMantel(m, m, 9, rand.New(rand.NewSource(9)))
		if err != nil {
			t.Fatalf("constructor failed: %v", err)
		}
		if _, err := test.Evaluate(ctx, power.Subsample{Shared: []int{0, 1}}); err == nil {
			t.Fatal("expected degenerate-sample error for 2 observations")
		}
	})
}
