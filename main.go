package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"subpower/adapters/artifacts/excel"
	"subpower/adapters/artifacts/fs"
	"subpower/adapters/artifacts/postgres"
	"subpower/adapters/rng"
	"subpower/app"
	"subpower/domain/core"
	"subpower/internal"
	"subpower/internal/config"
	"subpower/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("batch failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *internal.Logger) error {
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
			return err
		}
		defer db.Close()
		if catalog, err = postgres.NewCatalog(db); err != nil {
			return err
		}
		logger.Info("summary catalog enabled")
	}

	source := fs.NewReplicateSource(cfg.Paths.InputDir)
	store := fs.NewSummaryStore(cfg.Paths.OutputDir)

	orch, err := app.NewOrchestrator(cfg, registry, source, store, catalog,
		rng.NewAdapter(), logger)
	if err != nil {
		return err
	}

	report, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.Export.Enabled {
		counts := make(map[core.FamilyName]int)
		for _, family := range registry.Families() {
			n, err := source.Count(ctx, family.Name)
			if err != nil {
				return err
			}
			counts[family.Name] = n
		}
		if err := excel.NewExporter(store).Export(ctx, cfg.Export.XLSXPath, counts); err != nil {
			return err
		}
		logger.Info("exported workbook to %s", cfg.Export.XLSXPath)
	}

	if report.Failed > 0 || report.TimedOut > 0 {
		logger.Warn("batch finished with %d failed and %d timed out items",
			report.Failed, report.TimedOut)
	}
	return nil
}
