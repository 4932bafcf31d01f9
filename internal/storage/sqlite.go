//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"motifmine/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		DELETE FROM runs;
		DELETE FROM encodings;
		DELETE FROM cells;
		DELETE FROM vocabularies;
		DELETE FROM fitness_history;
		DELETE FROM merge_history;
	`)
	return err
}

// upsert writes payload under id in table. Table names come from this file only.
func (s *SQLiteStore) upsert(ctx context.Context, table, id string, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO `+table+` (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, id, CurrentSchemaVersion, CurrentCodecVersion, payload)
	return err
}

func (s *SQLiteStore) load(ctx context.Context, table, id string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}
	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM `+table+` WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "runs", run.ID, payload)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	payload, ok, err := s.load(ctx, "runs", id)
	if err != nil || !ok {
		return model.RunRecord{}, false, err
	}
	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]model.RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM runs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, fmt.Errorf("decode run %s: %w", id, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortRuns(runs)
	return runs, nil
}

func (s *SQLiteStore) SaveEncoding(ctx context.Context, encoding model.Encoding) error {
	payload, err := EncodeEncoding(encoding)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "encodings", encoding.RunID, payload)
}

func (s *SQLiteStore) GetEncoding(ctx context.Context, runID string) (model.Encoding, bool, error) {
	payload, ok, err := s.load(ctx, "encodings", runID)
	if err != nil || !ok {
		return model.Encoding{}, false, err
	}
	encoding, err := DecodeEncoding(payload)
	if err != nil {
		return model.Encoding{}, false, fmt.Errorf("decode encoding %s: %w", runID, err)
	}
	return encoding, true, nil
}

func (s *SQLiteStore) SaveCells(ctx context.Context, cells model.CellSet) error {
	payload, err := EncodeCells(cells)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "cells", cells.RunID, payload)
}

func (s *SQLiteStore) GetCells(ctx context.Context, runID string) (model.CellSet, bool, error) {
	payload, ok, err := s.load(ctx, "cells", runID)
	if err != nil || !ok {
		return model.CellSet{}, false, err
	}
	cells, err := DecodeCells(payload)
	if err != nil {
		return model.CellSet{}, false, fmt.Errorf("decode cells %s: %w", runID, err)
	}
	return cells, true, nil
}

func (s *SQLiteStore) SaveVocabulary(ctx context.Context, vocabulary model.Vocabulary) error {
	payload, err := EncodeVocabulary(vocabulary)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "vocabularies", vocabulary.RunID, payload)
}

func (s *SQLiteStore) GetVocabulary(ctx context.Context, runID string) (model.Vocabulary, bool, error) {
	payload, ok, err := s.load(ctx, "vocabularies", runID)
	if err != nil || !ok {
		return model.Vocabulary{}, false, err
	}
	vocabulary, err := DecodeVocabulary(payload)
	if err != nil {
		return model.Vocabulary{}, false, fmt.Errorf("decode vocabulary %s: %w", runID, err)
	}
	return vocabulary, true, nil
}

func (s *SQLiteStore) SaveFitnessHistory(ctx context.Context, runID string, history []model.RowFitness) error {
	payload, err := EncodeFitnessHistory(history)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "fitness_history", runID, payload)
}

func (s *SQLiteStore) GetFitnessHistory(ctx context.Context, runID string) ([]model.RowFitness, bool, error) {
	payload, ok, err := s.load(ctx, "fitness_history", runID)
	if err != nil || !ok {
		return nil, false, err
	}
	history, err := DecodeFitnessHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode fitness history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *SQLiteStore) SaveMergeHistory(ctx context.Context, runID string, events []model.MergeEvent) error {
	payload, err := EncodeMergeHistory(events)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "merge_history", runID, payload)
}

func (s *SQLiteStore) GetMergeHistory(ctx context.Context, runID string) ([]model.MergeEvent, bool, error) {
	payload, ok, err := s.load(ctx, "merge_history", runID)
	if err != nil || !ok {
		return nil, false, err
	}
	events, err := DecodeMergeHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode merge history %s: %w", runID, err)
	}
	return events, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"runs", "encodings", "cells", "vocabularies", "fitness_history", "merge_history"} {
		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS `+table+` (
				id TEXT PRIMARY KEY,
				schema_version INTEGER NOT NULL,
				codec_version INTEGER NOT NULL,
				payload BLOB NOT NULL
			)
		`)
		if err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}
	return nil
}
