package merge

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motifmine/internal/metrics"
	"motifmine/internal/pathgraph"
	"motifmine/internal/symbol"
)

func newTestMerger(t *testing.T, cfg Config) *Merger {
	t.Helper()
	m, err := NewMerger(cfg)
	require.NoError(t, err)
	return m
}

func TestMergerKeepsTerminalSelfLoops(t *testing.T) {
	m := newTestMerger(t, Config{})
	result, err := m.Run(context.Background(), "abcabcabcxyzxyz\tabcxyz\t", []string{"abc", "xyz"})
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.Equal(t, 1, result.Rounds)
	assert.Empty(t, result.Lineage)
	assert.Equal(t, []string{"abc", "xyz"}, result.Vocabulary)
	assert.Equal(t, []string{"abc", "xyz"}, result.Terminal)

	rows := result.RowPaths()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"abc", "abc", "abc", "xyz", "xyz"}, rows[0])
	assert.Equal(t, []string{"abc", "xyz"}, rows[1])
}

func TestMergerComposesSelfLoopInsideLongerNode(t *testing.T) {
	m := newTestMerger(t, Config{})
	result, err := m.Run(context.Background(), "aa0aa0aa0aa0bb1\t", []string{"aa0", "aa0bb1", "bb1"})
	require.NoError(t, err)

	require.Len(t, result.Lineage, 1)
	assert.Equal(t, Event{Round: 1, Kind: KindSelfLoop, In: "aa0", Out: "aa0", Merged: "aa0aa0", Weight: 2, MergedFrequency: 2}, result.Lineage[0])
	assert.True(t, result.Converged)
	assert.Equal(t, 2, result.Rounds)
	assert.Equal(t, []string{"aa0aa0", "aa0bb1", "aa0", "bb1"}, result.Vocabulary)
	assert.Equal(t, []string{"aa0aa0", "aa0aa0", "bb1", "\t"}, result.Path.Tokens)
}

func TestMergerCrossMergesFrequentBigram(t *testing.T) {
	m := newTestMerger(t, Config{})
	result, err := m.Run(context.Background(), "aa0bb1aa0bb1\tcc2\t", []string{"aa0", "bb1", "cc2"})
	require.NoError(t, err)

	require.Len(t, result.Lineage, 1)
	assert.Equal(t, KindCross, result.Lineage[0].Kind)
	assert.Equal(t, "aa0bb1", result.Lineage[0].Merged)
	assert.Equal(t, []string{"aa0bb1", "aa0", "bb1", "cc2"}, result.Vocabulary)
	assert.Equal(t, [][]string{{"aa0bb1", "aa0bb1"}, {"cc2"}}, result.RowPaths())
}

func TestMergerRoundCapIsSoft(t *testing.T) {
	m := newTestMerger(t, Config{MaxRounds: 1})
	result, err := m.Run(context.Background(), "aa0bb1aa0bb1\tcc2\t", []string{"aa0", "bb1", "cc2"})
	require.NoError(t, err)
	assert.False(t, result.Converged)
	assert.Equal(t, 1, result.Rounds)
	assert.Contains(t, result.Vocabulary, "aa0bb1")
}

func TestMergerVocabularyGrowsByLineage(t *testing.T) {
	seed := []string{"aa0", "bb1", "cc2", "dd3"}
	encoding := symbol.Join([]string{"aa0bb1cc2dd3aa0bb1cc2dd3", "aa0bb1cc2", "cc2dd3cc2dd3"})
	m := newTestMerger(t, Config{MaxRounds: 50})
	result, err := m.Run(context.Background(), encoding, seed)
	require.NoError(t, err)

	assert.Len(t, result.Vocabulary, len(seed)+len(result.Lineage))
	assert.Subset(t, result.Vocabulary, seed)
	for i, event := range result.Lineage {
		assert.Equal(t, i+1, event.Round)
	}
	assert.LessOrEqual(t, result.Rounds, 50)
}

func TestMergerRecordsMetricsAndLogs(t *testing.T) {
	reg := prometheus.NewRegistry()
	var logs bytes.Buffer
	m := newTestMerger(t, Config{
		Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
		Metrics: metrics.New(reg),
	})
	_, err := m.Run(context.Background(), "aa0bb1aa0bb1\tcc2\t", []string{"aa0", "bb1", "cc2"})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "motifmine_merge_merges_total")
	assert.Contains(t, logs.String(), "merged nodes")
	assert.Contains(t, logs.String(), "kind=cross")
}

func TestMergerInputErrors(t *testing.T) {
	m := newTestMerger(t, Config{})

	_, err := m.Run(context.Background(), "", []string{"abc"})
	require.ErrorIs(t, err, symbol.ErrEmptySequence)

	_, err = m.Run(context.Background(), "abc\t", nil)
	require.ErrorIs(t, err, ErrEmptyVocabulary)

	_, err = m.Run(context.Background(), "abc\t", []string{"", "\t"})
	require.ErrorIs(t, err, ErrEmptyVocabulary)

	_, err = NewMerger(Config{MaxRounds: -1})
	require.Error(t, err)
}

func TestMergerHonoursCancellation(t *testing.T) {
	m := newTestMerger(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := m.Run(ctx, "abcabc\t", []string{"abc"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"abc"}, result.Vocabulary)
}

func TestMergerNeverReappendsKnownBigram(t *testing.T) {
	m := newTestMerger(t, Config{})
	result, err := m.Run(context.Background(), "aa0bb1aa0bb1\t", []string{"aa0", "bb1", "aa0bb1"})
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.Equal(t, 1, result.Rounds)
	assert.Empty(t, result.Lineage)
	assert.Equal(t, []string{"aa0bb1", "aa0", "bb1"}, result.Vocabulary)
	assert.Equal(t, []string{"aa0bb1"}, result.Terminal)
	assert.Equal(t, []string{"aa0bb1", "aa0bb1", "\t"}, result.Path.Tokens)
}

func TestScanSkipsEdgeWhoseMergeIsKnown(t *testing.T) {
	m := newTestMerger(t, Config{})
	nodes := pathgraph.SortVocabulary([]string{"aa0bb1", "aa0", "bb1", "cc2", symbol.Sentinel})
	path := pathgraph.Path{Tokens: []string{"aa0", "bb1", "aa0", "bb1", "cc2", symbol.Sentinel}}

	event, terminal, ok := m.scan("aa0bb1aa0bb1cc2\t", nodes, path)
	require.True(t, ok)
	assert.Empty(t, terminal)
	assert.Equal(t, Event{Kind: KindCross, In: "bb1", Out: "cc2", Merged: "bb1cc2", Weight: 1, MergedFrequency: 1}, event)
}
