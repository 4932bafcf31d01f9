package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"motifmine/internal/model"
)

const (
	prefixRun        = "run/"
	prefixEncoding   = "encoding/"
	prefixCells      = "cells/"
	prefixVocabulary = "vocabulary/"
	prefixFitness    = "fitness/"
	prefixMerge      = "merge/"
)

type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives badger's internal messages; nil silences them.
	Logger *slog.Logger
}

// BadgerStore keeps every record as a JSON payload under a typed key prefix.
type BadgerStore struct {
	cfg BadgerConfig

	mu sync.RWMutex
	db *badger.DB
}

func NewBadgerStore(cfg BadgerConfig) *BadgerStore {
	return &BadgerStore{cfg: cfg}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (s *BadgerStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	if !s.cfg.InMemory && s.cfg.Path == "" {
		return errors.New("badger path is required")
	}

	var opts badger.Options
	if s.cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(s.cfg.Path, 0o750); err != nil {
			return fmt.Errorf("create badger directory %s: %w", s.cfg.Path, err)
		}
		opts = badger.DefaultOptions(s.cfg.Path)
	}
	opts = opts.WithSyncWrites(s.cfg.SyncWrites).WithNumVersionsToKeep(1)
	if s.cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: s.cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("open badger database: %w", err)
	}
	s.db = db
	return nil
}

func (s *BadgerStore) Reset(_ context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return db.DropAll()
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *BadgerStore) getDB() (*badger.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func (s *BadgerStore) put(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), payload)
	})
}

func (s *BadgerStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}
	var payload []byte
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *BadgerStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	return s.put(ctx, prefixRun+run.ID, payload)
}

func (s *BadgerStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	payload, ok, err := s.get(ctx, prefixRun+id)
	if err != nil || !ok {
		return model.RunRecord{}, false, err
	}
	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *BadgerStore) ListRuns(ctx context.Context) ([]model.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	var runs []model.RunRecord
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixRun)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			payload, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			run, err := DecodeRun(payload)
			if err != nil {
				return fmt.Errorf("decode run %s: %w", it.Item().Key(), err)
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRuns(runs)
	return runs, nil
}

func (s *BadgerStore) SaveEncoding(ctx context.Context, encoding model.Encoding) error {
	payload, err := EncodeEncoding(encoding)
	if err != nil {
		return err
	}
	return s.put(ctx, prefixEncoding+encoding.RunID, payload)
}

func (s *BadgerStore) GetEncoding(ctx context.Context, runID string) (model.Encoding, bool, error) {
	payload, ok, err := s.get(ctx, prefixEncoding+runID)
	if err != nil || !ok {
		return model.Encoding{}, false, err
	}
	encoding, err := DecodeEncoding(payload)
	if err != nil {
		return model.Encoding{}, false, fmt.Errorf("decode encoding %s: %w", runID, err)
	}
	return encoding, true, nil
}

func (s *BadgerStore) SaveCells(ctx context.Context, cells model.CellSet) error {
	payload, err := EncodeCells(cells)
	if err != nil {
		return err
	}
	return s.put(ctx, prefixCells+cells.RunID, payload)
}

func (s *BadgerStore) GetCells(ctx context.Context, runID string) (model.CellSet, bool, error) {
	payload, ok, err := s.get(ctx, prefixCells+runID)
	if err != nil || !ok {
		return model.CellSet{}, false, err
	}
	cells, err := DecodeCells(payload)
	if err != nil {
		return model.CellSet{}, false, fmt.Errorf("decode cells %s: %w", runID, err)
	}
	return cells, true, nil
}

func (s *BadgerStore) SaveVocabulary(ctx context.Context, vocabulary model.Vocabulary) error {
	payload, err := EncodeVocabulary(vocabulary)
	if err != nil {
		return err
	}
	return s.put(ctx, prefixVocabulary+vocabulary.RunID, payload)
}

func (s *BadgerStore) GetVocabulary(ctx context.Context, runID string) (model.Vocabulary, bool, error) {
	payload, ok, err := s.get(ctx, prefixVocabulary+runID)
	if err != nil || !ok {
		return model.Vocabulary{}, false, err
	}
	vocabulary, err := DecodeVocabulary(payload)
	if err != nil {
		return model.Vocabulary{}, false, fmt.Errorf("decode vocabulary %s: %w", runID, err)
	}
	return vocabulary, true, nil
}

func (s *BadgerStore) SaveFitnessHistory(ctx context.Context, runID string, history []model.RowFitness) error {
	payload, err := EncodeFitnessHistory(history)
	if err != nil {
		return err
	}
	return s.put(ctx, prefixFitness+runID, payload)
}

func (s *BadgerStore) GetFitnessHistory(ctx context.Context, runID string) ([]model.RowFitness, bool, error) {
	payload, ok, err := s.get(ctx, prefixFitness+runID)
	if err != nil || !ok {
		return nil, false, err
	}
	history, err := DecodeFitnessHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode fitness history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *BadgerStore) SaveMergeHistory(ctx context.Context, runID string, events []model.MergeEvent) error {
	payload, err := EncodeMergeHistory(events)
	if err != nil {
		return err
	}
	return s.put(ctx, prefixMerge+runID, payload)
}

func (s *BadgerStore) GetMergeHistory(ctx context.Context, runID string) ([]model.MergeEvent, bool, error) {
	payload, ok, err := s.get(ctx, prefixMerge+runID)
	if err != nil || !ok {
		return nil, false, err
	}
	events, err := DecodeMergeHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode merge history %s: %w", runID, err)
	}
	return events, true, nil
}
