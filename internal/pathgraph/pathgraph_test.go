package pathgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeLongestMatchFirst(t *testing.T) {
	path := Tokenize("abcabc", []string{"c", "ab", "abc"})
	assert.Equal(t, []string{"abc", "abc"}, path.Tokens)
	assert.Zero(t, path.Missed)
}

func TestTokenizeSkipsUnmatchedCharacters(t *testing.T) {
	path := Tokenize("abcQabcRR", []string{"abc"})
	assert.Equal(t, []string{"abc", "abc"}, path.Tokens)
	assert.Equal(t, 3, path.Missed)
	assert.Equal(t, "abcabc", path.Joined())
}

func TestTokenizeEmptyVocabulary(t *testing.T) {
	path := Tokenize("abc", nil)
	assert.Empty(t, path.Tokens)
	assert.Equal(t, 3, path.Missed)
}

func TestSortVocabulary(t *testing.T) {
	got := SortVocabulary([]string{"c", "abc", "", "xyz", "ab", "abc"})
	assert.Equal(t, []string{"abc", "xyz", "ab", "c"}, got)
}

func TestPathCounts(t *testing.T) {
	path := Path{Tokens: []string{"abc", "xyz", "abc"}}
	assert.Equal(t, 2, path.Count("abc"))
	assert.Equal(t, 0, path.Count("qqq"))
	assert.Len(t, path.TokenSet(), 2)
}

func TestBuildGraphWeights(t *testing.T) {
	path := Tokenize("abcabcabcxyzxyz\tabcxyz\t", []string{"abc", "xyz", "\t"})
	require.Equal(t, []string{"abc", "abc", "abc", "xyz", "xyz", "\t", "abc", "xyz", "\t"}, path.Tokens)

	g := Build(path)
	assert.Equal(t, []string{"abc", "xyz", "\t"}, g.Nodes())
	assert.Equal(t, 2, g.Weight("abc", "abc"))
	assert.Equal(t, 2, g.Weight("abc", "xyz"))
	assert.Equal(t, 2, g.Weight("xyz", "\t"))
	assert.Equal(t, 0, g.Weight("xyz", "abc"))
	assert.Len(t, g.Edges(), 5)
}

func TestHeavyEdgesExcludeSentinelAndKeepFirstOccurrenceOnTies(t *testing.T) {
	g := Build(Tokenize("abcabcabcxyzxyz\tabcxyz\t", []string{"abc", "xyz", "\t"}))
	assert.Equal(t, []Edge{
		{From: "abc", To: "abc", Weight: 2},
		{From: "abc", To: "xyz", Weight: 2},
		{From: "xyz", To: "xyz", Weight: 1},
	}, g.HeavyEdges("\t"))
}

func TestBuildEmptyPath(t *testing.T) {
	g := Build(Path{})
	assert.Empty(t, g.Nodes())
	assert.Empty(t, g.HeavyEdges("\t"))
}
