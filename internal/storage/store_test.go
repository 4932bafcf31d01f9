package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motifmine/internal/model"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []model.RunRecord{
		{VersionedRecord: CurrentVersion(), ID: "run-b", Stage: model.StageSearched, CreatedAt: created.Add(time.Minute), Rows: 2},
		{VersionedRecord: CurrentVersion(), ID: "run-a", Stage: model.StageMerged, CreatedAt: created, Rows: 3, Vocabulary: 7},
	}
	for _, run := range runs {
		require.NoError(t, store.SaveRun(ctx, run))
	}

	run, ok, err := store.GetRun(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, run.Vocabulary)
	assert.True(t, run.CreatedAt.Equal(created))

	listed, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "run-a", listed[0].ID)
	assert.Equal(t, "run-b", listed[1].ID)

	_, ok, err = store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveEncoding(ctx, model.Encoding{VersionedRecord: CurrentVersion(), RunID: "run-a", Sequence: "abcabc\tabc\t", Width: 3}))
	encoding, ok, err := store.GetEncoding(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abcabc\tabc\t", encoding.Sequence)

	require.NoError(t, store.SaveCells(ctx, model.CellSet{VersionedRecord: CurrentVersion(), RunID: "run-a", Cells: []string{"abcabc", "xyz"}}))
	cells, ok, err := store.GetCells(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"abcabc", "xyz"}, cells.Cells)

	require.NoError(t, store.SaveVocabulary(ctx, model.Vocabulary{VersionedRecord: CurrentVersion(), RunID: "run-a", Nodes: []string{"abcabc", "abc"}, Terminal: []string{"abc"}}))
	vocabulary, ok, err := store.GetVocabulary(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"abcabc", "abc"}, vocabulary.Nodes)
	assert.Equal(t, []string{"abc"}, vocabulary.Terminal)

	history := []model.RowFitness{{VersionedRecord: CurrentVersion(), Row: 0, BestScore: 0.95, Epochs: 4, Converged: true, BestByEpoch: []float64{0.5, 0.95}}}
	require.NoError(t, store.SaveFitnessHistory(ctx, "run-a", history))
	gotHistory, ok, err := store.GetFitnessHistory(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, history, gotHistory)

	events := []model.MergeEvent{{VersionedRecord: CurrentVersion(), Round: 1, Kind: "cross", In: "abc", Out: "xyz", Merged: "abcxyz", Weight: 2, MergedFrequency: 2}}
	require.NoError(t, store.SaveMergeHistory(ctx, "run-a", events))
	gotEvents, ok, err := store.GetMergeHistory(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, events, gotEvents)

	require.NoError(t, store.Reset(ctx))
	listed, err = store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
	_, ok, err = store.GetCells(ctx, "run-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	err := store.SaveRun(context.Background(), model.RunRecord{ID: "r"})
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestBadgerStoreInMemory(t *testing.T) {
	store := NewBadgerStore(BadgerConfig{InMemory: true})
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := NewBadgerStore(BadgerConfig{Path: dir, SyncWrites: true})
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.SaveCells(ctx, model.CellSet{VersionedRecord: CurrentVersion(), RunID: "r1", Cells: []string{"aa0bb1"}}))
	require.NoError(t, first.Close())

	second := NewBadgerStore(BadgerConfig{Path: dir})
	require.NoError(t, second.Init(ctx))
	t.Cleanup(func() { _ = second.Close() })
	cells, ok, err := second.GetCells(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"aa0bb1"}, cells.Cells)
}

func TestBadgerStoreRequiresInit(t *testing.T) {
	store := NewBadgerStore(BadgerConfig{InMemory: true})
	_, _, err := store.GetRun(context.Background(), "r")
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(KindMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = NewStore(KindBadger, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, store)
	require.NoError(t, CloseIfSupported(store))

	_, err = NewStore(KindBadger, "")
	require.Error(t, err)

	_, err = NewStore("unknown", "")
	require.Error(t, err)
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	payload, err := EncodeRun(model.RunRecord{ID: "r"})
	require.NoError(t, err)
	_, err = DecodeRun(payload)
	require.ErrorIs(t, err, ErrVersionMismatch)

	payload, err = EncodeMergeHistory([]model.MergeEvent{{Round: 1}})
	require.NoError(t, err)
	_, err = DecodeMergeHistory(payload)
	require.ErrorIs(t, err, ErrVersionMismatch)
}
