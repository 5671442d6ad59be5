package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"subpower/adapters/artifacts/fs"
	"subpower/adapters/artifacts/postgres"
	"subpower/adapters/rng"
	"subpower/app"
	"subpower/domain/core"
	domain "subpower/domain/power"
	"subpower/internal"
	"subpower/internal/config"
	"subpower/internal/errors"
	"subpower/internal/power"
	"subpower/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "subpower-cli",
		Short: "Subpower CLI for power estimation batches and single items",
	}

	rootCmd.AddCommand(
		newBatchCmd(),
		newEstimateCmd(),
		newShowCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newBatchCmd() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the full power estimation batch",
		Long: `Estimate empirical power curves for every configured test family
crossed with every simulation replicate under INPUT_DIR, writing one summary
per (family, replicate) to OUTPUT_DIR.

Example: FAMILIES=independent_t,anova subpower-cli batch --overwrite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if overwrite {
				cfg.Run.Overwrite = true
			}
			return runBatch(cmd.Context(), cfg)
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Recompute items that already have a persisted summary")
	return cmd
}

func runBatch(ctx context.Context, cfg *config.Config) error {
	logger := internal.NewDefaultLogger()

	registry, err := app.NewRegistry(cfg.Run.Families, app.FamilyConfig{
		Permutations: cfg.Estimation.Permutations,
		Mu0:          cfg.Estimation.Mu0,
	})
	if err != nil {
		return err
	}

	var catalog ports.SummaryCatalog
	if cfg.Catalog.Enabled {
		db, err := sqlx.Connect("postgres", cfg.Catalog.DSN)
		if err != nil {
			return fmt.Errorf("connecting to catalog: %w", err)
		}
		defer db.Close()
		catalog, err = postgres.NewCatalog(db)
		if err != nil {
			return fmt.Errorf("initializing catalog: %w", err)
		}
	}

	orch, err := app.NewOrchestrator(
		cfg,
		registry,
		fs.NewReplicateSource(cfg.Paths.InputDir),
		fs.NewSummaryStore(cfg.Paths.OutputDir),
		catalog,
		rng.NewAdapter(),
		logger,
	)
	if err != nil {
		return err
	}

	report, err := orch.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("run %s: %d computed, %d skipped, %d failed, %d timed out\n",
		report.RunID, report.Computed, report.Skipped, report.Failed, report.TimedOut)
	for _, r := range report.Results {
		if r.Err != nil {
			fmt.Printf("  %s replicate %d [%s]: %v\n", r.Family, r.Replicate, errors.GetCode(r.Err), r.Err)
		}
	}
	return nil
}

func newEstimateCmd() *cobra.Command {
	var (
		family       string
		inputDir     string
		index        int
		alpha        float64
		numIter      int
		numRuns      int
		permutations int
		seed         int64
		mu0          float64
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate one power curve and print it as JSON",
		Long: `Estimate the empirical power curve for a single (family, replicate)
pair without persisting anything.

Example: subpower-cli estimate --family independent_t --input ./simulations --replicate 0 --seed 12345`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd.Context(), family, inputDir, index, alpha,
				numIter, numRuns, permutations, seed, mu0)
		},
	}

	cmd.Flags().StringVar(&family, "family", "independent_t", "Test family to estimate")
	cmd.Flags().StringVar(&inputDir, "input", "./simulations", "Replicate input directory")
	cmd.Flags().IntVar(&index, "replicate", 0, "Replicate index")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "Significance level")
	cmd.Flags().IntVar(&numIter, "num-iter", 500, "Subsample draws per cell")
	cmd.Flags().IntVar(&numRuns, "num-runs", 10, "Independent estimation runs")
	cmd.Flags().IntVar(&permutations, "permutations", 999, "Permutation depth for distance tests")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic draws")
	cmd.Flags().Float64Var(&mu0, "mu0", 0, "Null mean for the one-sample t family")
	return cmd
}

func runEstimate(ctx context.Context, familyName, inputDir string, index int,
	alpha float64, numIter, numRuns, permutations int, seed int64, mu0 float64) error {
	registry, err := app.NewRegistry([]string{familyName}, app.FamilyConfig{
		Permutations: permutations,
		Mu0:          mu0,
	})
	if err != nil {
		return err
	}
	family, err := registry.Lookup(core.FamilyName(familyName))
	if err != nil {
		return err
	}

	source := fs.NewReplicateSource(inputDir)
	replicate, err := source.Load(ctx, family.Name, index)
	if err != nil {
		return err
	}

	adapter := rng.NewAdapter()
	stream := adapter.SeededStream(fmt.Sprintf("%s/%d", familyName, index), seed)
	bound, err := family.Bind(replicate, stream, registry.Config())
	if err != nil {
		return err
	}

	counts, err := domain.NewSchedule(bound.Pool.MinGroupSize(), 5, 10, domain.DefaultScheduleBuffer)
	if err != nil {
		return err
	}
	originalP, err := bound.Test.EvaluateFull(ctx)
	if err != nil {
		return err
	}
	curve, err := power.NewEstimator(stream).Estimate(ctx, bound.Test, bound.Pool, power.Options{
		Counts:  counts,
		Alpha:   alpha,
		NumIter: numIter,
		NumRuns: numRuns,
		Mode:    family.Mode,
		Policy:  power.FailureAbort,
	})
	if err != nil {
		return err
	}

	var traditional []float64
	if bound.ClosedForm != nil {
		if traditional, err = bound.ClosedForm.Compute(counts, alpha); err != nil {
			return err
		}
	}

	summary := domain.NewPowerSummary(family.Name, index, core.RunID(core.NewID()),
		alpha, *curve, traditional, originalP, replicate.TotalObservations(),
		numIter, numRuns, seed)
	return printJSON(summary)
}

func newShowCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "show [family] [replicate]",
		Short: "Print a persisted power summary",
		Long: `Load one persisted power summary and print it as JSON, with the
per-count mean/spread statistics of the empirical curve.

Example: subpower-cli show independent_t 0 --output ./power`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid replicate index %q: %w", args[1], err)
			}
			return runShow(cmd.Context(), outputDir, core.FamilyName(args[0]), index)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", "./power", "Summary output directory")
	return cmd
}

func runShow(ctx context.Context, outputDir string, family core.FamilyName, index int) error {
	store := fs.NewSummaryStore(outputDir)
	summary, err := store.Load(ctx, family, index)
	if err != nil {
		return err
	}
	stats, err := summary.Empirical.Summaries()
	if err != nil {
		return err
	}
	return printJSON(struct {
		Summary  *domain.PowerSummary  `json:"summary"`
		PerCount []domain.CountSummary `json:"per_count"`
	}{Summary: summary, PerCount: stats})
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
