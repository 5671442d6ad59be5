package app

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"subpower/adapters/rng"
	"subpower/domain/core"
	"subpower/domain/dataset"
	"subpower/domain/power"
	"subpower/internal"
	"subpower/internal/config"
	"subpower/internal/testkit"
)

func testConfig(families ...string) *config.Config {
	return &config.Config{
		Run: config.RunConfig{
			Workers:     1,
			Seed:        42,
			ItemTimeout: time.Minute,
			Families:    families,
		},
		Estimation: config.EstimationConfig{
			Alpha:         0.05,
			NumIter:       30,
			NumRuns:       2,
			Permutations:  49,
			CountStart:    5,
			CountStep:     10,
			CountBuffer:   10,
			FailurePolicy: "abort",
		},
	}
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, source *testkit.InMemoryReplicateSource, store *testkit.InMemorySummaryStore) *Orchestrator {
	t.Helper()
	registry, err := NewRegistry(cfg.Run.Families, FamilyConfig{
		Permutations: cfg.Estimation.Permutations,
		Mu0:          cfg.Estimation.Mu0,
	})
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	orch, err := NewOrchestrator(cfg, registry, source, store, nil,
		rng.NewAdapter(), internal.NewLogger(internal.LogLevelError))
	if err != nil {
		t.Fatalf("building orchestrator: %v", err)
	}
	return orch
}

func addTwoGroupReplicates(source *testkit.InMemoryReplicateSource, family core.FamilyName, n, count int, shift float64) {
	gen := rand.New(rand.NewSource(7))
	for i := 0; i < count; i++ {
		vectors := testkit.NormalGroups(gen, n, 1.0, 0, shift)
		source.Add(family, &dataset.Replicate{Vectors: vectors})
	}
}

func TestOrchestratorComputesAllItems(t *testing.T) {
	cfg := testConfig("independent_t", "one_sample_t")
	source := testkit.NewInMemoryReplicateSource()
	store := testkit.NewInMemorySummaryStore()

	addTwoGroupReplicates(source, FamilyIndependentT, 30, 2, 1.0)
	gen := rand.New(rand.NewSource(11))
	source.Add(FamilyOneSampleT, &dataset.Replicate{
		Vectors: testkit.NormalGroups(gen, 30, 1.0, 1.0),
	})

	orch := newTestOrchestrator(t, cfg, source, store)
	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Computed != 3 || report.Skipped != 0 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.RunID.String() == "" {
		t.Error("report has no run id")
	}

	for _, item := range []struct {
		family core.FamilyName
		index  int
	}{
		{FamilyIndependentT, 0},
		{FamilyIndependentT, 1},
		{FamilyOneSampleT, 0},
	} {
		summary, err := store.Load(context.Background(), item.family, item.index)
		if err != nil {
			t.Fatalf("missing summary for %s/%d: %v", item.family, item.index, err)
		}
		if err := summary.Validate(); err != nil {
			t.Errorf("invalid summary for %s/%d: %v", item.family, item.index, err)
		}
		// n=30 with start 5, step 10, buffer 10 yields counts 5 and 15
		if len(summary.Counts) != 2 || summary.Counts[0] != 5 || summary.Counts[1] != 15 {
			t.Errorf("unexpected schedule for %s/%d: %v", item.family, item.index, summary.Counts)
		}
		if summary.Traditional == nil {
			t.Errorf("t families carry a closed-form curve, got none for %s/%d", item.family, item.index)
		}
		if len(summary.Traditional) != len(summary.Counts) {
			t.Errorf("traditional curve length %d != counts %d", len(summary.Traditional), len(summary.Counts))
		}
		if summary.OriginalP < 0 || summary.OriginalP > 1 {
			t.Errorf("original p outside [0,1]: %v", summary.OriginalP)
		}
		if summary.Seed != cfg.Run.Seed {
			t.Errorf("summary seed %d != configured %d", summary.Seed, cfg.Run.Seed)
		}
		if summary.RunID != report.RunID {
			t.Errorf("summary run id %s != report %s", summary.RunID, report.RunID)
		}
	}
}

func TestOrchestratorSkipsExistingSummaries(t *testing.T) {
	cfg := testConfig("independent_t")
	source := testkit.NewInMemoryReplicateSource()
	store := testkit.NewInMemorySummaryStore()
	addTwoGroupReplicates(source, FamilyIndependentT, 30, 2, 1.0)

	orch := newTestOrchestrator(t, cfg, source, store)
	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	savesAfterFirst := store.Saves()

	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if report.Skipped != 2 || report.Computed != 0 {
		t.Fatalf("second run should skip persisted items: %+v", report)
	}
	if store.Saves() != savesAfterFirst {
		t.Errorf("second run wrote %d more summaries", store.Saves()-savesAfterFirst)
	}

	cfg.Run.Overwrite = true
	report, err = orch.Run(context.Background())
	if err != nil {
		t.Fatalf("overwrite run failed: %v", err)
	}
	if report.Computed != 2 {
		t.Fatalf("overwrite run should recompute all items: %+v", report)
	}
	if store.Saves() != savesAfterFirst+2 {
		t.Errorf("overwrite run saved %d summaries, want 2", store.Saves()-savesAfterFirst)
	}
}

func TestOrchestratorIsolatesItemFailures(t *testing.T) {
	cfg := testConfig("independent_t")
	source := testkit.NewInMemoryReplicateSource()
	store := testkit.NewInMemorySummaryStore()

	addTwoGroupReplicates(source, FamilyIndependentT, 30, 1, 1.0)
	// three vectors cannot bind to a two-sample test
	gen := rand.New(rand.NewSource(13))
	source.Add(FamilyIndependentT, &dataset.Replicate{
		Vectors: testkit.NormalGroups(gen, 30, 1.0, 0, 1, 2),
	})

	orch := newTestOrchestrator(t, cfg, source, store)
	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Computed != 1 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	var failed *ItemResult
	for i := range report.Results {
		if report.Results[i].Status == StatusFailed {
			failed = &report.Results[i]
		}
	}
	if failed == nil || failed.Err == nil {
		t.Fatal("failed item carries no error")
	}
	if failed.Replicate != 1 {
		t.Errorf("wrong replicate failed: %d", failed.Replicate)
	}
	if exists, _ := store.Exists(context.Background(), FamilyIndependentT, 1); exists {
		t.Error("failed item must not persist a summary")
	}
	if exists, _ := store.Exists(context.Background(), FamilyIndependentT, 0); !exists {
		t.Error("healthy item should still persist")
	}
}

func TestOrchestratorParallelWorkers(t *testing.T) {
	cfg := testConfig("independent_t")
	cfg.Run.Workers = 4
	source := testkit.NewInMemoryReplicateSource()
	store := testkit.NewInMemorySummaryStore()
	addTwoGroupReplicates(source, FamilyIndependentT, 30, 6, 1.0)

	orch := newTestOrchestrator(t, cfg, source, store)
	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Computed != 6 {
		t.Fatalf("unexpected report: %+v", report)
	}
	for i := 0; i < 6; i++ {
		if exists, _ := store.Exists(context.Background(), FamilyIndependentT, i); !exists {
			t.Errorf("missing summary for replicate %d", i)
		}
	}
}

func TestOrchestratorReproducibleFromSeed(t *testing.T) {
	source := testkit.NewInMemoryReplicateSource()
	addTwoGroupReplicates(source, FamilyIndependentT, 30, 2, 1.0)

	runBatch := func() map[int]*power.PowerSummary {
		cfg := testConfig("independent_t")
		store := testkit.NewInMemorySummaryStore()
		orch := newTestOrchestrator(t, cfg, source, store)
		if _, err := orch.Run(context.Background()); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		out := make(map[int]*power.PowerSummary)
		for i := 0; i < 2; i++ {
			summary, err := store.Load(context.Background(), FamilyIndependentT, i)
			if err != nil {
				t.Fatalf("loading replicate %d: %v", i, err)
			}
			out[i] = summary
		}
		return out
	}

	first := runBatch()
	second := runBatch()

	for i := 0; i < 2; i++ {
		a, b := first[i], second[i]
		if len(a.Empirical.Values) != len(b.Empirical.Values) {
			t.Fatalf("replicate %d: run shapes differ", i)
		}
		for run := range a.Empirical.Values {
			for ci := range a.Empirical.Values[run] {
				if a.Empirical.Values[run][ci] != b.Empirical.Values[run][ci] {
					t.Fatalf("replicate %d run %d count %d: %v != %v with identical seed",
						i, run, a.Counts[ci], a.Empirical.Values[run][ci], b.Empirical.Values[run][ci])
				}
			}
		}
		if a.ConfigHash != b.ConfigHash {
			t.Errorf("replicate %d: config hashes differ with identical configuration", i)
		}
	}
}

func TestOrchestratorUnknownFamilyRejected(t *testing.T) {
	_, err := NewRegistry([]string{"chi_squared"}, FamilyConfig{Permutations: 99})
	if err == nil {
		t.Fatal("expected unknown family to be rejected")
	}
}
