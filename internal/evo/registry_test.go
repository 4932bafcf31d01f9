package evo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type firstSelector struct{}

func (firstSelector) Name() string { return "first" }

func (firstSelector) PickParents(_ *rand.Rand, pool []string, _ map[string]int, n int) ([]string, error) {
	if len(pool) < n {
		return nil, ErrInsufficientPool
	}
	return pool[:n], nil
}

func TestSelectorFromNameBuiltins(t *testing.T) {
	selector, err := SelectorFromName("")
	require.NoError(t, err)
	assert.Equal(t, "uniform", selector.Name())

	selector, err = SelectorFromName("tournament")
	require.NoError(t, err)
	assert.Equal(t, "tournament", selector.Name())

	_, err = SelectorFromName("roulette")
	require.ErrorIs(t, err, ErrSelectorNotFound)
}

func TestRegisterSelector(t *testing.T) {
	t.Cleanup(resetSelectorRegistryForTests)

	require.NoError(t, RegisterSelector("first", func() Selector { return firstSelector{} }))
	require.ErrorIs(t, RegisterSelector("first", func() Selector { return firstSelector{} }), ErrSelectorExists)
	require.Error(t, RegisterSelector("", func() Selector { return firstSelector{} }))
	require.Error(t, RegisterSelector("nil", nil))

	selector, err := SelectorFromName("first")
	require.NoError(t, err)
	assert.Equal(t, "first", selector.Name())
	assert.Equal(t, []string{"first", "tournament", "uniform"}, ListSelectors())
}
