package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"subpower/domain/core"
	domain "subpower/domain/power"
	"subpower/internal"
	"subpower/internal/config"
	"subpower/internal/errors"
	"subpower/internal/power"
	"subpower/ports"
)

// ItemStatus classifies the outcome of one (family, replicate) work item
type ItemStatus string

const (
	StatusComputed ItemStatus = "computed"
	StatusSkipped  ItemStatus = "skipped"
	StatusFailed   ItemStatus = "failed"
	StatusTimedOut ItemStatus = "timed_out"
)

// ItemResult records the outcome of one work item
type ItemResult struct {
	Family    core.FamilyName
	Replicate int
	Status    ItemStatus
	Err       error
}

// BatchReport summarizes a complete batch run
type BatchReport struct {
	RunID    core.RunID
	Computed int
	Skipped  int
	Failed   int
	TimedOut int
	Results  []ItemResult
}

// Orchestrator walks every (family, replicate) pair, estimates its power
// curve and persists one summary per item. Item failures are isolated: a
// failing replicate is logged and counted, and the batch continues.
type Orchestrator struct {
	cfg      *config.Config
	registry *Registry
	source   ports.ReplicateSource
	store    ports.SummaryStore
	catalog  ports.SummaryCatalog
	rng      ports.RNGPort
	logger   *internal.Logger
	policy   power.FailurePolicy
}

// NewOrchestrator wires the orchestrator. catalog may be nil when no
// queryable index is configured.
func NewOrchestrator(
	cfg *config.Config,
	registry *Registry,
	source ports.ReplicateSource,
	store ports.SummaryStore,
	catalog ports.SummaryCatalog,
	rng ports.RNGPort,
	logger *internal.Logger,
) (*Orchestrator, error) {
	policy, err := power.ParsePolicy(cfg.Estimation.FailurePolicy)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		source:   source,
		store:    store,
		catalog:  catalog,
		rng:      rng,
		logger:   logger,
		policy:   policy,
	}, nil
}

type workItem struct {
	family    Family
	replicate int
}

// Run executes the whole batch: every configured family crossed with every
// replicate the source holds for it. Already-persisted items are skipped
// unless overwrite is set. Concurrency is bounded by the configured worker
// count; per-item randomness is derived from the run seed, so results do
// not depend on scheduling order.
func (o *Orchestrator) Run(ctx context.Context) (*BatchReport, error) {
	runID := core.RunID(core.NewID())
	o.logger.Info("starting batch run %s with %d workers", runID, o.cfg.Run.Workers)

	var items []workItem
	for _, family := range o.registry.Families() {
		count, err := o.source.Count(ctx, family.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "counting replicates for family %s", family.Name)
		}
		o.logger.Debug("family %s: %d replicates", family.Name, count)
		for i := 0; i < count; i++ {
			items = append(items, workItem{family: family, replicate: i})
		}
	}

	sem := semaphore.NewWeighted(int64(o.cfg.Run.Workers))
	results := make([]ItemResult, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, errors.Wrap(err, "acquiring worker slot")
		}
		wg.Add(1)
		go func(i int, item workItem) {
			defer sem.Release(1)
			defer wg.Done()
			results[i] = o.processItem(ctx, runID, item)
		}(i, item)
	}
	wg.Wait()

	report := &BatchReport{RunID: runID, Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusComputed:
			report.Computed++
		case StatusSkipped:
			report.Skipped++
		case StatusTimedOut:
			report.TimedOut++
		default:
			report.Failed++
		}
	}
	o.logger.Info("batch run %s done: %d computed, %d skipped, %d failed, %d timed out",
		runID, report.Computed, report.Skipped, report.Failed, report.TimedOut)
	return report, nil
}

func (o *Orchestrator) processItem(ctx context.Context, runID core.RunID, item workItem) ItemResult {
	result := ItemResult{Family: item.family.Name, Replicate: item.replicate}

	itemCtx := ctx
	if o.cfg.Run.ItemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, o.cfg.Run.ItemTimeout)
		defer cancel()
	}

	err := o.estimateItem(itemCtx, runID, item, &result)
	switch {
	case err == nil && result.Status == StatusSkipped:
		o.logger.Debug("skipping %s replicate %d: summary exists", item.family.Name, item.replicate)
	case err == nil:
		result.Status = StatusComputed
		o.logger.Info("computed %s replicate %d", item.family.Name, item.replicate)
	case stderrors.Is(err, context.DeadlineExceeded):
		result.Status = StatusTimedOut
		result.Err = errors.Timeout(fmt.Sprintf("%s replicate %d", item.family.Name, item.replicate))
		o.logger.Error("timed out on %s replicate %d", item.family.Name, item.replicate)
	default:
		result.Status = StatusFailed
		result.Err = err
		o.logger.Error("failed %s replicate %d [%s]: %v",
			item.family.Name, item.replicate, errors.GetCode(err), err)
	}
	return result
}

func (o *Orchestrator) estimateItem(ctx context.Context, runID core.RunID, item workItem, result *ItemResult) error {
	if !o.cfg.Run.Overwrite {
		exists, err := o.store.Exists(ctx, item.family.Name, item.replicate)
		if err != nil {
			return errors.Wrap(err, "checking for existing summary")
		}
		if exists {
			result.Status = StatusSkipped
			return nil
		}
	}

	replicate, err := o.source.Load(ctx, item.family.Name, item.replicate)
	if err != nil {
		return errors.Wrap(err, "loading replicate")
	}

	// the run id is audit metadata only; streams derive from the seed and
	// the work item alone so repeated batches reproduce each other
	stream := o.rng.Stream(item.family.Name, item.replicate, o.cfg.Run.Seed)
	bound, err := item.family.Bind(replicate, stream, o.registry.Config())
	if err != nil {
		return errors.Wrap(err, "binding test family")
	}

	originalP, err := bound.Test.EvaluateFull(ctx)
	if err != nil {
		return errors.TestExecution(bound.Test.Name(), err)
	}

	est := o.cfg.Estimation
	counts, err := domain.NewSchedule(bound.Pool.MinGroupSize(), est.CountStart, est.CountStep, est.CountBuffer)
	if err != nil {
		return errors.Wrap(err, "building counts schedule")
	}

	estimator := power.NewEstimator(stream)
	curve, err := estimator.Estimate(ctx, bound.Test, bound.Pool, power.Options{
		Counts:    counts,
		Alpha:     est.Alpha,
		NumIter:   est.NumIter,
		NumRuns:   est.NumRuns,
		Mode:      item.family.Mode,
		Bootstrap: est.Bootstrap && item.family.AllowsBootstrap,
		Policy:    o.policy,
	})
	if err != nil {
		return err
	}

	var traditional []float64
	if bound.ClosedForm != nil {
		traditional, err = bound.ClosedForm.Compute(counts, est.Alpha)
		if err != nil {
			return errors.Wrap(err, "computing closed-form power")
		}
	}

	summary := domain.NewPowerSummary(
		item.family.Name,
		item.replicate,
		runID,
		est.Alpha,
		*curve,
		traditional,
		originalP,
		replicate.TotalObservations(),
		est.NumIter,
		est.NumRuns,
		o.cfg.Run.Seed,
	)
	if err := o.store.Save(ctx, summary); err != nil {
		return errors.Persistence("saving power summary", err)
	}
	if o.catalog != nil {
		if err := o.catalog.Upsert(ctx, summary); err != nil {
			// the file store is the truth source; a catalog miss is
			// recoverable by re-running with overwrite
			o.logger.Warn("catalog upsert failed for %s replicate %d: %v",
				item.family.Name, item.replicate, err)
		}
	}
	return nil
}
