package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearline-health/claimscan/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testRun(id string, startedAt time.Time) model.ScanRun {
	return model.ScanRun{
		ID:            id,
		Status:        model.ScanRunComplete,
		Threshold:     0.3,
		ProviderCount: 2,
		FlagCount:     3,
		StartedAt:     startedAt,
		FinishedAt:    startedAt.Add(time.Minute),
	}
}

func testResults() []model.ScanResult {
	return []model.ScanResult{
		{
			ProviderID:   "p9",
			OverallScore: 0.9,
			RedFlags: []model.RedFlag{
				{Kind: model.FlagVolumeImpossibility, Description: "too many claims", Severity: 1.0},
				{Kind: model.FlagBillingSpike, Description: "spike", Severity: 0.6},
			},
		},
		{
			ProviderID:   "p5",
			OverallScore: 0.5,
			RedFlags: []model.RedFlag{
				{Kind: model.FlagSuspiciousConsistency, Description: "same amount", Severity: 0.95},
			},
		},
	}
}

func TestSQLiteSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := testRun("run-1", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, s.SaveScan(ctx, run, testResults()))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, model.ScanRunComplete, got.Status)
	assert.InDelta(t, 0.3, got.Threshold, 1e-9)
	assert.Equal(t, 2, got.ProviderCount)
	assert.Equal(t, 3, got.FlagCount)
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.SaveScan(ctx, testRun("old", base.Add(-time.Hour)), nil))
	require.NoError(t, s.SaveScan(ctx, testRun("new", base), nil))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "old", runs[1].ID)

	limited, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].ID)
}

func TestSQLiteResultsForRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveScan(ctx, testRun("run-1", time.Now().UTC()), testResults()))

	results, err := s.ResultsForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Rank order preserved.
	assert.Equal(t, "p9", results[0].ProviderID)
	assert.Equal(t, "p5", results[1].ProviderID)
	require.Len(t, results[0].RedFlags, 2)
	assert.Equal(t, model.FlagVolumeImpossibility, results[0].RedFlags[0].Kind)
	assert.InDelta(t, 0.95, results[1].RedFlags[0].Severity, 1e-9)
}

func TestSQLiteLatestResultForProvider(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	earlier := []model.ScanResult{{ProviderID: "p9", OverallScore: 0.4, RedFlags: []model.RedFlag{
		{Kind: model.FlagBillingSpike, Severity: 0.4},
	}}}
	require.NoError(t, s.SaveScan(ctx, testRun("run-1", base.Add(-time.Hour)), earlier))
	require.NoError(t, s.SaveScan(ctx, testRun("run-2", base), testResults()))

	got, err := s.LatestResultForProvider(ctx, "p9")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 0.9, got.OverallScore, 1e-9)

	never, err := s.LatestResultForProvider(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, never)
}
