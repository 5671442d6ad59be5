// Package power implements the subsampling power-estimation engine: the
// rejection-rate loop that turns a statistical test and a sample pool into
// an empirical power curve across a schedule of subsample sizes.
package power

import (
	"context"
	"fmt"
	"math/rand"

	"subpower/domain/core"
	domain "subpower/domain/power"
	"subpower/internal/errors"
	"subpower/internal/subsample"
	"subpower/ports"
)

// FailurePolicy decides what a single failed test invocation does to the
// estimate. Abort is the safe default: one bad trial fails the whole
// estimate rather than silently skewing the rejection rate.
type FailurePolicy string

const (
	// FailureAbort fails the whole estimate on the first trial error
	FailureAbort FailurePolicy = "abort"

	// FailureDrop excludes failed trials from the rejection-rate
	// denominator. Under high failure rates this changes reported power,
	// so a cell whose every trial failed still errors.
	FailureDrop FailurePolicy = "drop"
)

// ParsePolicy converts a configuration string into a FailurePolicy
func ParsePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case FailureAbort, FailureDrop:
		return FailurePolicy(s), nil
	default:
		return "", errors.ConfigInvalid(fmt.Sprintf("unknown failure policy %q", s))
	}
}

// Options configures one power estimation
type Options struct {
	Counts    domain.CountsSchedule
	Alpha     float64
	NumIter   int
	NumRuns   int
	Mode      domain.DrawMode
	Bootstrap bool
	Policy    FailurePolicy
}

// Validate checks the options against the pool they will run over. The
// estimator never auto-clips an oversized schedule; the caller must build
// counts bounded below the smallest group.
func (o Options) Validate(pool *domain.SamplePool) error {
	if err := pool.Validate(); err != nil {
		return err
	}
	if err := o.Counts.ValidateAgainst(pool.MinGroupSize()); err != nil {
		return err
	}
	if o.Alpha <= 0 || o.Alpha >= 1 {
		return errors.ConfigInvalid("alpha must lie in (0,1)")
	}
	if o.NumIter < 1 || o.NumRuns < 1 {
		return errors.ConfigInvalid("num_iter and num_runs must be at least 1")
	}
	if !o.Mode.Valid() {
		return errors.ConfigInvalid(fmt.Sprintf("unknown draw mode %q", o.Mode))
	}
	if o.Bootstrap && o.Mode != domain.DrawIndependent {
		return errors.ConfigInvalid("bootstrap sampling requires independent draw mode")
	}
	if o.Policy == "" {
		return errors.ConfigInvalid("failure policy is required")
	}
	return nil
}

// Estimator runs the nested runs x counts x iterations rejection loop
type Estimator struct {
	rng *rand.Rand
}

// NewEstimator creates an estimator drawing randomness from the given stream
func NewEstimator(rng *rand.Rand) *Estimator {
	return &Estimator{rng: rng}
}

// Estimate computes the empirical power curve for test over pool. Each of
// NumRuns independent runs produces one power estimate per count: the
// fraction of NumIter fresh subsample draws whose p-value falls strictly
// below alpha. Runs and counts are logically independent; iterating them in
// order keeps the draw sequence reproducible for a fixed stream.
func (e *Estimator) Estimate(ctx context.Context, test ports.StatisticalTest, pool *domain.SamplePool, opts Options) (*domain.PowerCurve, error) {
	if err := opts.Validate(pool); err != nil {
		return nil, err
	}

	curve := &domain.PowerCurve{
		Counts: opts.Counts,
		Values: make([][]float64, opts.NumRuns),
	}

	for run := 0; run < opts.NumRuns; run++ {
		row := make([]float64, len(opts.Counts))
		for ci, count := range opts.Counts {
			cell, err := e.estimateCell(ctx, test, pool, count, opts)
			if err != nil {
				return nil, fmt.Errorf("run %d count %d: %w", run+1, count, err)
			}
			row[ci] = cell
		}
		curve.Values[run] = row
	}

	return curve, nil
}

// estimateCell computes the rejection rate at one count
func (e *Estimator) estimateCell(ctx context.Context, test ports.StatisticalTest, pool *domain.SamplePool, count int, opts Options) (float64, error) {
	rejections := 0
	evaluated := 0

	for iter := 0; iter < opts.NumIter; iter++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		sub, err := e.draw(pool, count, opts)
		if err != nil {
			// A failed draw is a configuration bug, never dropped
			return 0, err
		}

		p, err := test.Evaluate(ctx, sub)
		if err != nil {
			if opts.Policy == FailureDrop {
				continue
			}
			return 0, errors.TestExecution(test.Name(), err)
		}

		evaluated++
		// Strict less-than: a p-value exactly at alpha is not a rejection
		if p < opts.Alpha {
			rejections++
		}
	}

	if evaluated == 0 {
		return 0, errors.TestExecution(test.Name(),
			fmt.Errorf("%w: all %d trials at count %d failed", core.ErrDegenerateSample, opts.NumIter, count))
	}

	return float64(rejections) / float64(evaluated), nil
}

func (e *Estimator) draw(pool *domain.SamplePool, count int, opts Options) (domain.Subsample, error) {
	if opts.Bootstrap {
		return subsample.DrawBootstrap(pool, count, e.rng)
	}
	return subsample.Draw(pool, count, opts.Mode, e.rng)
}
