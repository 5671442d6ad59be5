package ports

import (
	"context"

	"subpower/domain/core"
	"subpower/domain/dataset"
	"subpower/domain/power"
)

// ReplicateSource loads precomputed simulation replicates for a test family.
// Inputs are produced by an external generation stage and consumed read-only.
type ReplicateSource interface {
	// Load reads replicate index for the given family
	Load(ctx context.Context, family core.FamilyName, index int) (*dataset.Replicate, error)

	// Count returns how many replicates exist for the family
	Count(ctx context.Context, family core.FamilyName) (int, error)
}

// SummaryStore persists one PowerSummary per (family, replicate) pair.
// Saved summaries must round-trip: a Load after Save reproduces the exact
// counts schedule, alpha and power arrays written.
type SummaryStore interface {
	Save(ctx context.Context, summary *power.PowerSummary) error
	Load(ctx context.Context, family core.FamilyName, index int) (*power.PowerSummary, error)
	Exists(ctx context.Context, family core.FamilyName, index int) (bool, error)
}

// SummaryCatalog is an optional queryable index over persisted summaries,
// one row per (family, replicate). The file store remains the truth source;
// the catalog only supports downstream comparison queries.
type SummaryCatalog interface {
	Upsert(ctx context.Context, summary *power.PowerSummary) error
}
