package storage

import (
	"errors"
	"fmt"
	"sort"

	"motifmine/internal/model"
)

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
	KindBadger = "badger"
)

var ErrSQLiteUnavailable = errors.New("sqlite backend not compiled in (build with -tags sqlite)")

// NewStore builds a backend by kind. path is the sqlite file or the badger
// directory; memory ignores it.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(path)
	case KindBadger:
		if path == "" {
			return nil, fmt.Errorf("badger backend requires a directory path")
		}
		return NewBadgerStore(BadgerConfig{Path: path, SyncWrites: true}), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

// sortRuns orders runs oldest first, ties by id.
func sortRuns(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}
