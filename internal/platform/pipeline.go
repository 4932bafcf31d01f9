package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"motifmine/internal/evo"
	"motifmine/internal/merge"
	"motifmine/internal/metrics"
	"motifmine/internal/model"
	"motifmine/internal/storage"
	"motifmine/internal/symbol"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunActive    = errors.New("run already active")
	ErrRunNotActive = errors.New("run not active")
	ErrNoCells      = errors.New("run has no cells")
)

type Config struct {
	Store   storage.Store
	Logger  *slog.Logger
	Metrics *metrics.Collectors
	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

type SearchConfig struct {
	RunID          string
	Source         string
	Encoding       string
	Width          int
	PopulationSize int
	Bounds         evo.SizeBounds
	MaxIter        int
	Threshold      float64
	Diversity      float64
	ExtendLength   int
	Selection      string
	Seed           int64
}

type SearchResult struct {
	RunID         string
	Cells         []string
	Rows          []model.RowFitness
	ConvergedRows int
	MeanBestScore float64
}

type MergeConfig struct {
	RunID     string
	MaxRounds int
}

type MergeResult struct {
	RunID      string
	Vocabulary []string
	Terminal   []string
	Lineage    []merge.Event
	RowPaths   [][]string
	Rounds     int
	Converged  bool
	Missed     int
}

type RunConfig struct {
	Search         SearchConfig
	MergeMaxRounds int
}

type RunResult struct {
	Search SearchResult
	Merge  MergeResult
}

// Pipeline drives the search and merge stages against a store. Stages of
// different runs may execute concurrently; one run id is active at most once.
type Pipeline struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Collectors
	now     func() time.Time
	newID   func() string

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Pipeline{
		store:   cfg.Store,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     cfg.Now,
		newID:   cfg.NewID,
		active:  make(map[string]context.CancelFunc),
	}, nil
}

func (p *Pipeline) Init(ctx context.Context) error {
	return p.store.Init(ctx)
}

func (p *Pipeline) Reset(ctx context.Context) error {
	p.mu.Lock()
	running := len(p.active)
	p.mu.Unlock()
	if running > 0 {
		return fmt.Errorf("%w: %d run(s) in progress", ErrRunActive, running)
	}
	return p.store.Reset(ctx)
}

// Search runs the genetic search row by row. Cells found in earlier rows seed the
// population of later ones, and frequencies are counted across the whole encoding.
func (p *Pipeline) Search(ctx context.Context, cfg SearchConfig) (SearchResult, error) {
	if cfg.Width <= 0 {
		cfg.Width = symbol.DefaultWidth
	}
	if err := symbol.Validate(cfg.Encoding, cfg.Width); err != nil {
		return SearchResult{}, err
	}
	selector, err := evo.SelectorFromName(cfg.Selection)
	if err != nil {
		return SearchResult{}, err
	}
	if cfg.RunID == "" {
		cfg.RunID = p.newID()
	}

	ctx, release, err := p.registerRun(ctx, cfg.RunID)
	if err != nil {
		return SearchResult{}, err
	}
	defer release()

	logger := p.logger.With("run_id", cfg.RunID)
	rows := symbol.Rows(cfg.Encoding)
	encoding := symbol.Join(rows)
	logger.Info("search started", "rows", len(rows), "population_size", cfg.PopulationSize, "selection", cfg.Selection)

	result := SearchResult{RunID: cfg.RunID}
	cells := make(map[string]struct{})
	var total float64
	for i, row := range rows {
		monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{
			PopulationSize: cfg.PopulationSize,
			Bounds:         cfg.Bounds,
			MaxIter:        cfg.MaxIter,
			Threshold:      cfg.Threshold,
			Diversity:      cfg.Diversity,
			ExtendLength:   cfg.ExtendLength,
			Width:          cfg.Width,
			Seed:           cfg.Seed + int64(i),
			Selector:       selector,
			Logger:         logger.With("row", i),
			Metrics:        p.metrics,
		})
		if err != nil {
			return SearchResult{}, err
		}
		run, err := monitor.Run(ctx, row, encoding, sortedSet(cells))
		if err != nil {
			return SearchResult{}, fmt.Errorf("search row %d: %w", i, err)
		}

		freq := evo.CountFrequency(run.BestPopulation, row)
		for _, cell := range evo.RemoveSubstrings(evo.FindNonOverlapping(run.BestPopulation, freq, cfg.Width)) {
			cells[cell] = struct{}{}
		}

		outcome := "max_iter"
		if run.Converged {
			outcome = "converged"
			result.ConvergedRows++
		}
		p.metrics.ObserveRow(outcome)
		total += run.BestScore
		result.Rows = append(result.Rows, model.RowFitness{
			VersionedRecord: storage.CurrentVersion(),
			Row:             i,
			BestScore:       run.BestScore,
			Epochs:          run.Epochs,
			Converged:       run.Converged,
			BestByEpoch:     run.BestByEpoch,
			BestPopulation:  run.BestPopulation,
		})
	}
	result.Cells = sortedSet(cells)
	if len(rows) > 0 {
		result.MeanBestScore = total / float64(len(rows))
	}

	now := p.now().UTC()
	record := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              cfg.RunID,
		Source:          cfg.Source,
		Stage:           model.StageSearched,
		CreatedAt:       now,
		UpdatedAt:       now,
		Settings: model.RunSettings{
			Width:          cfg.Width,
			PopulationSize: cfg.PopulationSize,
			LowerSize:      cfg.Bounds.Lower,
			UpperSize:      cfg.Bounds.Upper,
			MaxIter:        cfg.MaxIter,
			Threshold:      cfg.Threshold,
			Diversity:      cfg.Diversity,
			ExtendLength:   cfg.ExtendLength,
			Selection:      cfg.Selection,
			Seed:           cfg.Seed,
		},
		Rows:          len(rows),
		ConvergedRows: result.ConvergedRows,
		MeanBestScore: result.MeanBestScore,
		Cells:         len(result.Cells),
	}
	if err := p.persistSearch(ctx, record, encoding, result); err != nil {
		return SearchResult{}, err
	}
	logger.Info("search finished", "cells", len(result.Cells), "converged_rows", result.ConvergedRows, "mean_best_score", result.MeanBestScore)
	return result, nil
}

func (p *Pipeline) persistSearch(ctx context.Context, record model.RunRecord, encoding string, result SearchResult) error {
	if err := p.store.SaveEncoding(ctx, model.Encoding{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           record.ID,
		Sequence:        encoding,
		Width:           record.Settings.Width,
	}); err != nil {
		return fmt.Errorf("save encoding: %w", err)
	}
	if err := p.store.SaveCells(ctx, model.CellSet{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           record.ID,
		Cells:           result.Cells,
	}); err != nil {
		return fmt.Errorf("save cells: %w", err)
	}
	if err := p.store.SaveFitnessHistory(ctx, record.ID, result.Rows); err != nil {
		return fmt.Errorf("save fitness history: %w", err)
	}
	if err := p.store.SaveRun(ctx, record); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// Merge seeds a vocabulary from the stored cells of a searched run and merges it
// until stable. Merging a run again replaces its previous vocabulary.
func (p *Pipeline) Merge(ctx context.Context, cfg MergeConfig) (MergeResult, error) {
	record, ok, err := p.store.GetRun(ctx, cfg.RunID)
	if err != nil {
		return MergeResult{}, err
	}
	if !ok {
		return MergeResult{}, fmt.Errorf("%w: %s", ErrRunNotFound, cfg.RunID)
	}
	encoding, ok, err := p.store.GetEncoding(ctx, cfg.RunID)
	if err != nil {
		return MergeResult{}, err
	}
	if !ok {
		return MergeResult{}, fmt.Errorf("%w: encoding for %s", ErrRunNotFound, cfg.RunID)
	}
	cells, ok, err := p.store.GetCells(ctx, cfg.RunID)
	if err != nil {
		return MergeResult{}, err
	}
	if !ok || len(cells.Cells) == 0 {
		return MergeResult{}, fmt.Errorf("%w: %s", ErrNoCells, cfg.RunID)
	}

	merger, err := merge.NewMerger(merge.Config{
		MaxRounds: cfg.MaxRounds,
		Logger:    p.logger.With("run_id", cfg.RunID),
		Metrics:   p.metrics,
	})
	if err != nil {
		return MergeResult{}, err
	}

	ctx, release, err := p.registerRun(ctx, cfg.RunID)
	if err != nil {
		return MergeResult{}, err
	}
	defer release()

	seed := merge.SeedVocabulary(encoding.Sequence, cells.Cells, encoding.Width)
	p.logger.Info("merge started", "run_id", cfg.RunID, "cells", len(cells.Cells), "seed_vocabulary", len(seed))
	merged, err := merger.Run(ctx, encoding.Sequence, seed)
	if err != nil {
		return MergeResult{}, err
	}

	vocabulary := model.Vocabulary{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           cfg.RunID,
		Nodes:           merged.Vocabulary,
		Terminal:        merged.Terminal,
	}
	if err := p.store.SaveVocabulary(ctx, vocabulary); err != nil {
		return MergeResult{}, fmt.Errorf("save vocabulary: %w", err)
	}
	if err := p.store.SaveMergeHistory(ctx, cfg.RunID, toModelLineage(merged.Lineage)); err != nil {
		return MergeResult{}, fmt.Errorf("save merge history: %w", err)
	}

	record.Stage = model.StageMerged
	record.UpdatedAt = p.now().UTC()
	record.Settings.MergeMaxRounds = cfg.MaxRounds
	record.Vocabulary = len(merged.Vocabulary)
	record.MergeRounds = merged.Rounds
	record.MergeConverged = merged.Converged
	record.MissedChars = merged.Path.Missed
	if err := p.store.SaveRun(ctx, record); err != nil {
		return MergeResult{}, fmt.Errorf("save run: %w", err)
	}

	p.logger.Info("merge finished", "run_id", cfg.RunID, "vocabulary", len(merged.Vocabulary), "rounds", merged.Rounds, "converged", merged.Converged)
	return MergeResult{
		RunID:      cfg.RunID,
		Vocabulary: merged.Vocabulary,
		Terminal:   merged.Terminal,
		Lineage:    merged.Lineage,
		RowPaths:   merged.RowPaths(),
		Rounds:     merged.Rounds,
		Converged:  merged.Converged,
		Missed:     merged.Path.Missed,
	}, nil
}

// Run executes both stages under one run id.
func (p *Pipeline) Run(ctx context.Context, cfg RunConfig) (RunResult, error) {
	searched, err := p.Search(ctx, cfg.Search)
	if err != nil {
		return RunResult{}, err
	}
	merged, err := p.Merge(ctx, MergeConfig{RunID: searched.RunID, MaxRounds: cfg.MergeMaxRounds})
	if err != nil {
		return RunResult{Search: searched}, err
	}
	return RunResult{Search: searched, Merge: merged}, nil
}

// StopRun cancels an in-flight stage. The stage returns context.Canceled and
// persists nothing.
func (p *Pipeline) StopRun(runID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cancel, ok := p.active[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}
	cancel()
	return nil
}

// ActiveRuns lists the ids of stages currently executing.
func (p *Pipeline) ActiveRuns() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.active))
	for id := range p.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Pipeline) registerRun(ctx context.Context, runID string) (context.Context, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.active[runID]; exists {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunActive, runID)
	}
	ctx, cancel := context.WithCancel(ctx)
	p.active[runID] = cancel
	return ctx, func() {
		p.mu.Lock()
		delete(p.active, runID)
		p.mu.Unlock()
		cancel()
	}, nil
}

func toModelLineage(lineage []merge.Event) []model.MergeEvent {
	out := make([]model.MergeEvent, 0, len(lineage))
	for _, event := range lineage {
		out = append(out, model.MergeEvent{
			VersionedRecord: storage.CurrentVersion(),
			Round:           event.Round,
			Kind:            event.Kind,
			In:              event.In,
			Out:             event.Out,
			Merged:          event.Merged,
			Weight:          event.Weight,
			MergedFrequency: event.MergedFrequency,
		})
	}
	return out
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
