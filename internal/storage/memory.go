package storage

import (
	"context"
	"sync"

	"motifmine/internal/model"
)

type MemoryStore struct {
	mu           sync.RWMutex
	initialized  bool
	runs         map[string]model.RunRecord
	encodings    map[string]model.Encoding
	cells        map[string]model.CellSet
	vocabularies map[string]model.Vocabulary
	history      map[string][]model.RowFitness
	merges       map[string][]model.MergeEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.reset()
	return nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return nil
}

func (s *MemoryStore) reset() {
	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.encodings = make(map[string]model.Encoding)
	s.cells = make(map[string]model.CellSet)
	s.vocabularies = make(map[string]model.Vocabulary)
	s.history = make(map[string][]model.RowFitness)
	s.merges = make(map[string][]model.MergeEvent)
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) SaveEncoding(_ context.Context, encoding model.Encoding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.encodings[encoding.RunID] = encoding
	return nil
}

func (s *MemoryStore) GetEncoding(_ context.Context, runID string) (model.Encoding, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	encoding, ok := s.encodings[runID]
	return encoding, ok, nil
}

func (s *MemoryStore) SaveCells(_ context.Context, cells model.CellSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	cells.Cells = append([]string(nil), cells.Cells...)
	s.cells[cells.RunID] = cells
	return nil
}

func (s *MemoryStore) GetCells(_ context.Context, runID string) (model.CellSet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cells, ok := s.cells[runID]
	if !ok {
		return model.CellSet{}, false, nil
	}
	cells.Cells = append([]string(nil), cells.Cells...)
	return cells, true, nil
}

func (s *MemoryStore) SaveVocabulary(_ context.Context, vocabulary model.Vocabulary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	vocabulary.Nodes = append([]string(nil), vocabulary.Nodes...)
	vocabulary.Terminal = append([]string(nil), vocabulary.Terminal...)
	s.vocabularies[vocabulary.RunID] = vocabulary
	return nil
}

func (s *MemoryStore) GetVocabulary(_ context.Context, runID string) (model.Vocabulary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vocabulary, ok := s.vocabularies[runID]
	if !ok {
		return model.Vocabulary{}, false, nil
	}
	vocabulary.Nodes = append([]string(nil), vocabulary.Nodes...)
	vocabulary.Terminal = append([]string(nil), vocabulary.Terminal...)
	return vocabulary, true, nil
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, runID string, history []model.RowFitness) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.history[runID] = append([]model.RowFitness(nil), history...)
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, runID string) ([]model.RowFitness, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.RowFitness(nil), history...), true, nil
}

func (s *MemoryStore) SaveMergeHistory(_ context.Context, runID string, events []model.MergeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.merges[runID] = append([]model.MergeEvent(nil), events...)
	return nil
}

func (s *MemoryStore) GetMergeHistory(_ context.Context, runID string) ([]model.MergeEvent, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, ok := s.merges[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.MergeEvent(nil), events...), true, nil
}
