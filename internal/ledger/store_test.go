package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"spool/internal/config"
	"spool/internal/pipeline"
	"spool/internal/staging"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.Root = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(cfg.Paths.Root, "logs")

	store, err := Open(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndQueryRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordRunStart(ctx, "run-1", "/library", false))

	results := []staging.Result{
		{Source: "/q/Movies/a.mkv", Target: "/c/Movies/A/A.mp4", Status: staging.StatusOK, Detail: "source deleted"},
		{Source: "/q/Movies/b.mkv", Status: staging.StatusFail, Detail: "ffmpeg exit code 1"},
	}
	require.NoError(t, store.RecordOutcomes(ctx, "run-1", results))
	require.NoError(t, store.RecordRunFinish(ctx, "run-1", pipeline.Summary{OK: 1, Fail: 1}))

	runs, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	require.Equal(t, "run-1", run.ID)
	require.Equal(t, "/library", run.Root)
	require.False(t, run.DryRun)
	require.NotNil(t, run.FinishedAt, "finished_at not recorded")
	require.Equal(t, 1, run.Summary.OK)
	require.Equal(t, 1, run.Summary.Fail)

	outcomes, err := store.RunOutcomes(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.Equal(t, staging.StatusOK, outcomes[0].Status)
	require.NotEmpty(t, outcomes[0].Target)
	require.Equal(t, staging.StatusFail, outcomes[1].Status)
	require.Empty(t, outcomes[1].Target)
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, store.RecordRunStart(ctx, id, "/library", true))
	}

	runs, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestRecordOutcomesEmptyIsNoop(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.RecordOutcomes(context.Background(), "missing", nil))
}

func TestOpenExistingDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Root = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(cfg.Paths.Root, "logs")

	first, err := Open(&cfg)
	require.NoError(t, err)
	require.NoError(t, first.RecordRunStart(context.Background(), "run-1", "/r", false))
	require.NoError(t, first.Close())

	second, err := Open(&cfg)
	require.NoError(t, err)
	defer second.Close()

	runs, err := second.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1, "persisted run missing")
}
