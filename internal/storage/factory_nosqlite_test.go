//go:build !sqlite

package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStoreWithoutSQLiteTag(t *testing.T) {
	_, err := NewStore(KindSQLite, "motifmine.db")
	require.ErrorIs(t, err, ErrSQLiteUnavailable)
}
