package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subpower/domain/core"
	"subpower/domain/power"
)

func sampleSummary() *power.PowerSummary {
	curve := power.PowerCurve{
		Counts: power.CountsSchedule{5, 15, 25},
		Values: [][]float64{
			{0.1, 0.5, 0.9},
			{0.2, 0.4, 0.95},
		},
	}
	return power.NewPowerSummary(
		core.FamilyName("independent_t"), 0, core.RunID("run-1"),
		0.05, curve, []float64{0.15, 0.45, 0.92}, 0.003, 100, 200, 2, 42,
	)
}

func TestSummaryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSummaryStore(t.TempDir())
	want := sampleSummary()

	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx, want.Family, want.Replicate)
	require.NoError(t, err)

	assert.Equal(t, want.Counts, got.Counts)
	assert.Equal(t, want.Alpha, got.Alpha)
	assert.Equal(t, want.Empirical.Values, got.Empirical.Values)
	assert.Equal(t, want.Traditional, got.Traditional)
	assert.Equal(t, want.OriginalP, got.OriginalP)
	assert.Equal(t, want.TotalObs, got.TotalObs)
	assert.Equal(t, want.ConfigHash, got.ConfigHash)
}

func TestSummaryStore_Exists(t *testing.T) {
	ctx := context.Background()
	store := NewSummaryStore(t.TempDir())
	summary := sampleSummary()

	exists, err := store.Exists(ctx, summary.Family, summary.Replicate)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Save(ctx, summary))

	exists, err = store.Exists(ctx, summary.Family, summary.Replicate)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSummaryStore_LoadMissing(t *testing.T) {
	store := NewSummaryStore(t.TempDir())
	_, err := store.Load(context.Background(), core.FamilyName("anova"), 7)
	assert.True(t, errors.Is(err, core.ErrSummaryNotFound))
}

func TestSummaryStore_InvalidSummaryRejected(t *testing.T) {
	store := NewSummaryStore(t.TempDir())
	bad := sampleSummary()
	bad.Alpha = 0 // outside (0,1)
	assert.Error(t, store.Save(context.Background(), bad))
}

func TestReplicateSource_LoadAndCount(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	familyDir := filepath.Join(dir, "independent_t")
	require.NoError(t, os.MkdirAll(familyDir, 0o755))

	payload := `{"index":0,"vectors":[[1,2,3],[4,5,6]]}`
	require.NoError(t, os.WriteFile(filepath.Join(familyDir, "simulation_0.json"), []byte(payload), 0o644))
	payload1 := `{"index":1,"vectors":[[7,8,9],[1,2,3]]}`
	require.NoError(t, os.WriteFile(filepath.Join(familyDir, "simulation_1.json"), []byte(payload1), 0o644))

	source := NewReplicateSource(dir)

	count, err := source.Count(ctx, core.FamilyName("independent_t"))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rep, err := source.Load(ctx, core.FamilyName("independent_t"), 1)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{7, 8, 9}, {1, 2, 3}}, rep.Vectors)

	_, err = source.Load(ctx, core.FamilyName("independent_t"), 5)
	assert.True(t, errors.Is(err, core.ErrReplicateNotFound))

	count, err = source.Count(ctx, core.FamilyName("mantel"))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReplicateSource_ValidatesShape(t *testing.T) {
	dir := t.TempDir()
	familyDir := filepath.Join(dir, "anova")
	require.NoError(t, os.MkdirAll(familyDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(familyDir, "simulation_0.json"), []byte(`{"index":0}`), 0o644))

	source := NewReplicateSource(dir)
	_, err := source.Load(context.Background(), core.FamilyName("anova"), 0)
	assert.Error(t, err)
}
