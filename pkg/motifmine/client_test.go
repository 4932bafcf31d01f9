package motifmine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motifmine/internal/config"
	"motifmine/internal/evo"
	"motifmine/internal/platform"
	"motifmine/internal/stats"
)

const repeatedEncoding = "aa0aa0aa0aa0\taa0aa0aa0aa0\t"

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Search.PopulationSize = 10
	cfg.Search.Bounds = evo.SizeBounds{Lower: 1, Upper: 4}
	cfg.Search.MaxIter = 5
	cfg.Search.Threshold = 0.5
	cfg.ArtifactsDir = t.TempDir()
	return cfg
}

func newTestClient(t *testing.T, cfg config.Config) *Client {
	t.Helper()
	client, err := NewClient(Options{Config: cfg, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Init(context.Background()))
	return client
}

func TestClientRunExportsArtifacts(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	client := newTestClient(t, cfg)

	summary, err := client.Run(ctx, SearchRequest{RunID: "r1", Source: "fixture", Encoding: repeatedEncoding})
	require.NoError(t, err)
	assert.Equal(t, "r1", summary.Search.RunID)
	assert.Equal(t, 2, summary.Search.Rows)
	assert.Equal(t, []string{"aa0"}, summary.Merge.Vocabulary)
	assert.True(t, summary.Merge.Converged)

	for _, name := range stats.ArtifactFiles() {
		_, err := os.Stat(filepath.Join(cfg.ArtifactsDir, "r1", name))
		require.NoError(t, err, name)
	}
	index, err := stats.ListRunIndex(cfg.ArtifactsDir)
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, "r1", index[0].RunID)
	assert.Equal(t, "merged", index[0].Stage)
}

func TestClientStagedSearchThenMerge(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, testConfig(t))

	searched, err := client.Search(ctx, SearchRequest{RunID: "staged", Encoding: repeatedEncoding})
	require.NoError(t, err)
	assert.Equal(t, []string{"aa0"}, searched.Cells)

	cells, err := client.Cells(ctx, RunRef{Latest: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"aa0"}, cells)

	_, err = client.Vocabulary(ctx, RunRef{RunID: "staged"})
	require.Error(t, err)

	merged, err := client.Merge(ctx, MergeRequest{Latest: true})
	require.NoError(t, err)
	assert.Equal(t, "staged", merged.RunID)
	assert.Zero(t, merged.Merges)

	vocabulary, err := client.Vocabulary(ctx, RunRef{RunID: "staged"})
	require.NoError(t, err)
	assert.Equal(t, []string{"aa0"}, vocabulary.Nodes)

	history, err := client.FitnessHistory(ctx, RunRef{RunID: "staged", Limit: 1})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 0, history[0].Row)

	lineage, err := client.MergeHistory(ctx, RunRef{RunID: "staged"})
	require.NoError(t, err)
	assert.Empty(t, lineage)

	record, err := client.LookupRun(ctx, RunRef{Latest: true})
	require.NoError(t, err)
	assert.Equal(t, "staged", record.ID)
	assert.True(t, record.MergeConverged)

	_, err = client.LookupRun(ctx, RunRef{RunID: "other"})
	require.ErrorIs(t, err, platform.ErrRunNotFound)

	runs, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "merged", runs[0].Stage)
	assert.Equal(t, 1, runs[0].Vocabulary)
}

func TestClientRunRefValidation(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, testConfig(t))

	_, err := client.Cells(ctx, RunRef{RunID: "a", Latest: true})
	require.Error(t, err)
	_, err = client.Cells(ctx, RunRef{})
	require.Error(t, err)
	_, err = client.Cells(ctx, RunRef{RunID: "a", Limit: -1})
	require.Error(t, err)
	_, err = client.MergeHistory(ctx, RunRef{Latest: true})
	require.ErrorIs(t, err, ErrNoRuns)
	_, err = client.Export(ctx, ExportRequest{RunRef: RunRef{RunID: "missing"}})
	require.Error(t, err)
}

func TestClientResetClearsRuns(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, testConfig(t))

	_, err := client.Search(ctx, SearchRequest{RunID: "gone", Encoding: repeatedEncoding})
	require.NoError(t, err)
	require.NoError(t, client.Reset(ctx))

	runs, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestClientBadgerStorePersistsAcrossClients(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Store = config.StoreConfig{Kind: "badger", Path: filepath.Join(t.TempDir(), "db")}

	first, err := NewClient(Options{Config: cfg})
	require.NoError(t, err)
	_, err = first.Search(ctx, SearchRequest{RunID: "kept", Encoding: repeatedEncoding})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newTestClient(t, cfg)
	merged, err := second.Merge(ctx, MergeRequest{RunID: "kept"})
	require.NoError(t, err)
	assert.Equal(t, []string{"aa0"}, merged.Vocabulary)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.Selection = "roulette"
	_, err := NewClient(Options{Config: cfg})
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg = testConfig(t)
	cfg.Store.Kind = "etcd"
	_, err = NewClient(Options{Config: cfg})
	require.Error(t, err)
}
