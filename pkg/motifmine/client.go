// Package motifmine is the programmatic entry point for discovering recurring
// multi-token motifs in encoded symbol sequences and merging them into a stable
// node vocabulary.
package motifmine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"motifmine/internal/config"
	"motifmine/internal/metrics"
	"motifmine/internal/model"
	"motifmine/internal/platform"
	"motifmine/internal/stats"
	"motifmine/internal/storage"
)

const defaultArtifactsDir = "artifacts"

var ErrNoRuns = errors.New("no runs available")

type Options struct {
	// Config defaults to config.Default when zero.
	Config config.Config
	Logger *slog.Logger
	// Registerer receives the pipeline collectors; nil disables metrics.
	Registerer prometheus.Registerer
}

type Client struct {
	cfg      config.Config
	store    storage.Store
	pipeline *platform.Pipeline
	logger   *slog.Logger
}

type SearchRequest struct {
	RunID    string
	Source   string
	Encoding string
}

type SearchSummary struct {
	RunID         string
	Cells         []string
	Rows          int
	ConvergedRows int
	MeanBestScore float64
}

type MergeRequest struct {
	RunID  string
	Latest bool
}

type MergeSummary struct {
	RunID      string
	Vocabulary []string
	Terminal   []string
	RowPaths   [][]string
	Merges     int
	Rounds     int
	Converged  bool
	Missed     int
}

type RunSummary struct {
	Search SearchSummary
	Merge  MergeSummary
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID         string
	Stage         string
	Source        string
	CreatedAtUTC  time.Time
	Rows          int
	ConvergedRows int
	MeanBestScore float64
	Cells         int
	Vocabulary    int
}

// RunRef names a stored run, either explicitly or as the most recent one.
type RunRef struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunRef
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func NewClient(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg.Width == 0 {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ArtifactsDir == "" {
		cfg.ArtifactsDir = defaultArtifactsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := newStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	var collectors *metrics.Collectors
	if opts.Registerer != nil {
		collectors = metrics.New(opts.Registerer)
	}
	pipeline, err := platform.NewPipeline(platform.Config{
		Store:   store,
		Logger:  logger,
		Metrics: collectors,
	})
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, store: store, pipeline: pipeline, logger: logger}, nil
}

func newStore(cfg config.StoreConfig, logger *slog.Logger) (storage.Store, error) {
	if cfg.Kind == storage.KindBadger && cfg.Path != "" {
		return storage.NewBadgerStore(storage.BadgerConfig{
			Path:       cfg.Path,
			SyncWrites: true,
			Logger:     logger.With("component", "badger"),
		}), nil
	}
	return storage.NewStore(cfg.Kind, cfg.Path)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.pipeline.Init(ctx)
}

func (c *Client) Reset(ctx context.Context) error {
	if err := c.pipeline.Init(ctx); err != nil {
		return err
	}
	return c.pipeline.Reset(ctx)
}

// Config returns the effective configuration.
func (c *Client) Config() config.Config {
	return c.cfg
}

func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchSummary, error) {
	if err := c.pipeline.Init(ctx); err != nil {
		return SearchSummary{}, err
	}
	result, err := c.pipeline.Search(ctx, c.searchConfig(req))
	if err != nil {
		return SearchSummary{}, err
	}
	return toSearchSummary(result), nil
}

func (c *Client) Merge(ctx context.Context, req MergeRequest) (MergeSummary, error) {
	if err := c.pipeline.Init(ctx); err != nil {
		return MergeSummary{}, err
	}
	runID, err := c.resolveRunID(ctx, RunRef{RunID: req.RunID, Latest: req.Latest}, "merge")
	if err != nil {
		return MergeSummary{}, err
	}
	result, err := c.pipeline.Merge(ctx, platform.MergeConfig{RunID: runID, MaxRounds: c.cfg.Merge.MaxRounds})
	if err != nil {
		return MergeSummary{}, err
	}
	return toMergeSummary(result), nil
}

// Run searches and merges one encoding, then exports its artifacts.
func (c *Client) Run(ctx context.Context, req SearchRequest) (RunSummary, error) {
	if err := c.pipeline.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	result, err := c.pipeline.Run(ctx, platform.RunConfig{
		Search:         c.searchConfig(req),
		MergeMaxRounds: c.cfg.Merge.MaxRounds,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if _, err := c.Export(ctx, ExportRequest{RunRef: RunRef{RunID: result.Search.RunID}}); err != nil {
		return RunSummary{}, err
	}
	return RunSummary{Search: toSearchSummary(result.Search), Merge: toMergeSummary(result.Merge)}, nil
}

// Runs lists stored runs newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.pipeline.Init(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RunItem, 0, min(len(runs), req.Limit))
	for i := len(runs) - 1; i >= 0 && len(out) < req.Limit; i-- {
		run := runs[i]
		out = append(out, RunItem{
			RunID:         run.ID,
			Stage:         run.Stage,
			Source:        run.Source,
			CreatedAtUTC:  run.CreatedAt.UTC(),
			Rows:          run.Rows,
			ConvergedRows: run.ConvergedRows,
			MeanBestScore: run.MeanBestScore,
			Cells:         run.Cells,
			Vocabulary:    run.Vocabulary,
		})
	}
	return out, nil
}

// LookupRun returns the stored record of one run.
func (c *Client) LookupRun(ctx context.Context, ref RunRef) (model.RunRecord, error) {
	runID, err := c.resolveRunID(ctx, ref, "run lookup")
	if err != nil {
		return model.RunRecord{}, err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("%w: %s", platform.ErrRunNotFound, runID)
	}
	return run, nil
}

func (c *Client) Cells(ctx context.Context, ref RunRef) ([]string, error) {
	runID, err := c.resolveRunID(ctx, ref, "cells")
	if err != nil {
		return nil, err
	}
	cells, ok, err := c.store.GetCells(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("cells not found for run id: %s", runID)
	}
	return limit(cells.Cells, ref.Limit), nil
}

func (c *Client) Vocabulary(ctx context.Context, ref RunRef) (model.Vocabulary, error) {
	runID, err := c.resolveRunID(ctx, ref, "vocabulary")
	if err != nil {
		return model.Vocabulary{}, err
	}
	vocabulary, ok, err := c.store.GetVocabulary(ctx, runID)
	if err != nil {
		return model.Vocabulary{}, err
	}
	if !ok {
		return model.Vocabulary{}, fmt.Errorf("vocabulary not found for run id: %s", runID)
	}
	vocabulary.Nodes = limit(vocabulary.Nodes, ref.Limit)
	return vocabulary, nil
}

func (c *Client) FitnessHistory(ctx context.Context, ref RunRef) ([]model.RowFitness, error) {
	runID, err := c.resolveRunID(ctx, ref, "fitness history")
	if err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	return limit(history, ref.Limit), nil
}

// MergeHistory returns the merge events of a run in the order they were applied.
func (c *Client) MergeHistory(ctx context.Context, ref RunRef) ([]model.MergeEvent, error) {
	runID, err := c.resolveRunID(ctx, ref, "lineage")
	if err != nil {
		return nil, err
	}
	events, ok, err := c.store.GetMergeHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("lineage not found for run id: %s", runID)
	}
	return limit(events, ref.Limit), nil
}

// Export writes the stored artifacts of a run to disk and records it in the run
// index of the output directory.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(ctx, req.RunRef, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.cfg.ArtifactsDir
	}

	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return ExportSummary{}, err
	}
	if !ok {
		return ExportSummary{}, fmt.Errorf("%w: %s", platform.ErrRunNotFound, runID)
	}
	artifacts := stats.RunArtifacts{Run: run}
	if cells, ok, err := c.store.GetCells(ctx, runID); err != nil {
		return ExportSummary{}, err
	} else if ok {
		artifacts.Cells = cells.Cells
	}
	if vocabulary, ok, err := c.store.GetVocabulary(ctx, runID); err != nil {
		return ExportSummary{}, err
	} else if ok {
		artifacts.Vocabulary = vocabulary
	}
	if history, ok, err := c.store.GetFitnessHistory(ctx, runID); err != nil {
		return ExportSummary{}, err
	} else if ok {
		artifacts.FitnessHistory = history
	}
	if events, ok, err := c.store.GetMergeHistory(ctx, runID); err != nil {
		return ExportSummary{}, err
	} else if ok {
		artifacts.MergeHistory = events
	}

	dir, err := stats.WriteRunArtifacts(req.OutDir, artifacts)
	if err != nil {
		return ExportSummary{}, err
	}
	if err := stats.AppendRunIndex(req.OutDir, stats.RunIndexEntry{
		RunID:         run.ID,
		Stage:         run.Stage,
		Source:        run.Source,
		Rows:          run.Rows,
		MeanBestScore: run.MeanBestScore,
		Vocabulary:    run.Vocabulary,
		CreatedAtUTC:  run.CreatedAt.UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return ExportSummary{}, err
	}
	c.logger.Info("exported run", "run_id", run.ID, "dir", dir)
	return ExportSummary{RunID: run.ID, Directory: filepath.Clean(dir)}, nil
}

func (c *Client) searchConfig(req SearchRequest) platform.SearchConfig {
	s := c.cfg.Search
	return platform.SearchConfig{
		RunID:          req.RunID,
		Source:         req.Source,
		Encoding:       req.Encoding,
		Width:          c.cfg.Width,
		PopulationSize: s.PopulationSize,
		Bounds:         s.Bounds,
		MaxIter:        s.MaxIter,
		Threshold:      s.Threshold,
		Diversity:      s.Diversity,
		ExtendLength:   s.ExtendLength,
		Selection:      s.Selection,
		Seed:           s.Seed,
	}
}

func (c *Client) resolveRunID(ctx context.Context, ref RunRef, what string) (string, error) {
	if ref.RunID != "" && ref.Latest {
		return "", errors.New("use either run id or latest")
	}
	if ref.Limit < 0 {
		return "", errors.New("limit must be >= 0")
	}
	if err := c.pipeline.Init(ctx); err != nil {
		return "", err
	}
	if !ref.Latest {
		if ref.RunID == "" {
			return "", fmt.Errorf("%s requires run id or latest", what)
		}
		return ref.RunID, nil
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrNoRuns
	}
	return runs[len(runs)-1].ID, nil
}

func toSearchSummary(result platform.SearchResult) SearchSummary {
	return SearchSummary{
		RunID:         result.RunID,
		Cells:         result.Cells,
		Rows:          len(result.Rows),
		ConvergedRows: result.ConvergedRows,
		MeanBestScore: result.MeanBestScore,
	}
}

func toMergeSummary(result platform.MergeResult) MergeSummary {
	return MergeSummary{
		RunID:      result.RunID,
		Vocabulary: result.Vocabulary,
		Terminal:   result.Terminal,
		RowPaths:   result.RowPaths,
		Merges:     len(result.Lineage),
		Rounds:     result.Rounds,
		Converged:  result.Converged,
		Missed:     result.Missed,
	}
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return append([]T(nil), items...)
}
