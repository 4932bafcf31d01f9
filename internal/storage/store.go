package storage

import (
	"context"
	"errors"

	"motifmine/internal/model"
)

var ErrNotInitialized = errors.New("store is not initialized")

// Store persists runs and the artifacts each stage produces for them.
type Store interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveEncoding(ctx context.Context, encoding model.Encoding) error
	GetEncoding(ctx context.Context, runID string) (model.Encoding, bool, error)
	SaveCells(ctx context.Context, cells model.CellSet) error
	GetCells(ctx context.Context, runID string) (model.CellSet, bool, error)
	SaveVocabulary(ctx context.Context, vocabulary model.Vocabulary) error
	GetVocabulary(ctx context.Context, runID string) (model.Vocabulary, bool, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []model.RowFitness) error
	GetFitnessHistory(ctx context.Context, runID string) ([]model.RowFitness, bool, error)
	SaveMergeHistory(ctx context.Context, runID string, events []model.MergeEvent) error
	GetMergeHistory(ctx context.Context, runID string) ([]model.MergeEvent, bool, error)
}
