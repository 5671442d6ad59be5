// Package postgres provides an optional queryable catalog over persisted
// power summaries. The file store remains the truth source; this index only
// serves downstream comparison queries.
package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"subpower/domain/power"
	"subpower/internal/errors"
	"subpower/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS power_summaries (
	family          TEXT        NOT NULL,
	replicate       INT         NOT NULL,
	run_id          TEXT        NOT NULL,
	alpha           DOUBLE PRECISION NOT NULL,
	original_p      DOUBLE PRECISION NOT NULL,
	total_obs       INT         NOT NULL,
	max_count       INT         NOT NULL,
	max_power_mean  DOUBLE PRECISION NOT NULL,
	num_iter        INT         NOT NULL,
	num_runs        INT         NOT NULL,
	seed            BIGINT      NOT NULL,
	config_hash     TEXT        NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (family, replicate)
)`

// CatalogImpl implements ports.SummaryCatalog for PostgreSQL
type CatalogImpl struct {
	db *sqlx.DB
}

// NewCatalog creates the catalog and ensures its schema exists
func NewCatalog(db *sqlx.DB) (ports.SummaryCatalog, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Persistence("creating catalog schema", err)
	}
	return &CatalogImpl{db: db}, nil
}

// Upsert writes one catalog row per (family, replicate), replacing any
// previous row for the pair
func (c *CatalogImpl) Upsert(ctx context.Context, summary *power.PowerSummary) error {
	summaries, err := summary.Empirical.Summaries()
	if err != nil {
		return errors.Wrap(err, "summarizing empirical curve")
	}
	last := summaries[len(summaries)-1]

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO power_summaries (
			family, replicate, run_id, alpha, original_p, total_obs,
			max_count, max_power_mean, num_iter, num_runs, seed,
			config_hash, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (family, replicate) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			alpha = EXCLUDED.alpha,
			original_p = EXCLUDED.original_p,
			total_obs = EXCLUDED.total_obs,
			max_count = EXCLUDED.max_count,
			max_power_mean = EXCLUDED.max_power_mean,
			num_iter = EXCLUDED.num_iter,
			num_runs = EXCLUDED.num_runs,
			seed = EXCLUDED.seed,
			config_hash = EXCLUDED.config_hash,
			created_at = EXCLUDED.created_at`,
		summary.Family.String(), summary.Replicate, summary.RunID.String(),
		summary.Alpha, summary.OriginalP, summary.TotalObs,
		last.Count, last.Mean, summary.NumIter, summary.NumRuns, summary.Seed,
		summary.ConfigHash.String(), summary.CreatedAt.Time())
	if err != nil {
		return errors.Persistence("upserting catalog row", err)
	}
	return nil
}
