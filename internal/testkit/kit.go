// Package testkit provides fakes and synthetic data generators used across
// the test suites: fixed and Bernoulli fake tests, in-memory repositories,
// and generators for grouped normal data and clustered distance matrices.
package testkit

import (
	"context"
	"fmt"
	"sync"

	"subpower/domain/core"
	"subpower/domain/dataset"
	"subpower/domain/power"
)

// FixedPTest is a fake statistical test that always returns the same p-value
type FixedPTest struct {
	P float64
}

// Name returns the test name
func (t *FixedPTest) Name() string { return "fixed_p" }

// Evaluate ignores the subsample and returns the fixed p-value
func (t *FixedPTest) Evaluate(ctx context.Context, sub power.Subsample) (float64, error) {
	return t.P, nil
}

// EvaluateFull returns the fixed p-value
func (t *FixedPTest) EvaluateFull(ctx context.Context) (float64, error) {
	return t.P, nil
}

// BernoulliTest is a fake test with a known true rejection probability: it
// returns p=0 with probability RejectProb and p=1 otherwise, driven by the
// subsample content so the estimator's own draws supply the randomness.
type BernoulliTest struct {
	RejectProb float64

	mu    sync.Mutex
	calls int
	rng   func() float64
}

// NewBernoulliTest builds a Bernoulli fake over the given uniform source
func NewBernoulliTest(rejectProb float64, uniform func() float64) *BernoulliTest {
	return &BernoulliTest{RejectProb: rejectProb, rng: uniform}
}

// Name returns the test name
func (t *BernoulliTest) Name() string { return "bernoulli" }

// Evaluate rejects with the configured probability
func (t *BernoulliTest) Evaluate(ctx context.Context, sub power.Subsample) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.rng() < t.RejectProb {
		return 0, nil
	}
	return 1, nil
}

// EvaluateFull rejects with the configured probability
func (t *BernoulliTest) EvaluateFull(ctx context.Context) (float64, error) {
	return t.Evaluate(ctx, power.Subsample{})
}

// Calls returns how many times Evaluate ran
func (t *BernoulliTest) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// FailingTest is a fake test that errors on every nth call and otherwise
// returns the given p-value
type FailingTest struct {
	P         float64
	FailEvery int

	mu    sync.Mutex
	calls int
}

// Name returns the test name
func (t *FailingTest) Name() string { return "failing" }

// Evaluate fails on every FailEvery-th call
func (t *FailingTest) Evaluate(ctx context.Context, sub power.Subsample) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.FailEvery > 0 && t.calls%t.FailEvery == 0 {
		return 0, fmt.Errorf("%w: synthetic failure on call %d", core.ErrDegenerateSample, t.calls)
	}
	return t.P, nil
}

// EvaluateFull never fails
func (t *FailingTest) EvaluateFull(ctx context.Context) (float64, error) {
	return t.P, nil
}

// InMemorySummaryStore is a SummaryStore fake backed by a map
type InMemorySummaryStore struct {
	mu        sync.RWMutex
	summaries map[string]*power.PowerSummary
	saves     int
}

// NewInMemorySummaryStore creates an empty store
func NewInMemorySummaryStore() *InMemorySummaryStore {
	return &InMemorySummaryStore{summaries: make(map[string]*power.PowerSummary)}
}

func summaryKey(family core.FamilyName, index int) string {
	return fmt.Sprintf("%s/%d", family, index)
}

// Save stores the summary
func (s *InMemorySummaryStore) Save(ctx context.Context, summary *power.PowerSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summaryKey(summary.Family, summary.Replicate)] = summary
	s.saves++
	return nil
}

// Load retrieves a summary
func (s *InMemorySummaryStore) Load(ctx context.Context, family core.FamilyName, index int) (*power.PowerSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[summaryKey(family, index)]
	if !ok {
		return nil, core.ErrSummaryNotFound
	}
	return summary, nil
}

// Exists reports whether a summary was saved
func (s *InMemorySummaryStore) Exists(ctx context.Context, family core.FamilyName, index int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.summaries[summaryKey(family, index)]
	return ok, nil
}

// Saves returns how many Save calls happened
func (s *InMemorySummaryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// InMemoryReplicateSource is a ReplicateSource fake backed by a map
type InMemoryReplicateSource struct {
	mu         sync.RWMutex
	replicates map[core.FamilyName][]*dataset.Replicate
}

// NewInMemoryReplicateSource creates an empty source
func NewInMemoryReplicateSource() *InMemoryReplicateSource {
	return &InMemoryReplicateSource{replicates: make(map[core.FamilyName][]*dataset.Replicate)}
}

// Add registers a replicate for a family
func (s *InMemoryReplicateSource) Add(family core.FamilyName, rep *dataset.Replicate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep.Index = len(s.replicates[family])
	s.replicates[family] = append(s.replicates[family], rep)
}

// Load retrieves replicate index for a family
func (s *InMemoryReplicateSource) Load(ctx context.Context, family core.FamilyName, index int) (*dataset.Replicate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reps := s.replicates[family]
	if index < 0 || index >= len(reps) {
		return nil, core.ErrReplicateNotFound
	}
	return reps[index], nil
}

// Count returns the number of replicates for a family
func (s *InMemoryReplicateSource) Count(ctx context.Context, family core.FamilyName) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.replicates[family]), nil
}
