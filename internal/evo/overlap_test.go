package evo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveSubstringsKeepsMaximalWords(t *testing.T) {
	got := RemoveSubstrings([]string{"abc", "abcdef", "def", "xyz", "abcdef"})
	assert.Equal(t, []string{"abcdef", "xyz"}, got)
}

func TestRemoveSubstringsIsIdempotent(t *testing.T) {
	inputs := [][]string{
		{"abc", "abcdef", "def", "xyz"},
		{"aa0bb1", "bb1", "cc2", "aa0bb1cc2", "dd3ee4"},
		{},
		{"same", "same"},
	}
	for _, input := range inputs {
		once := RemoveSubstrings(input)
		twice := RemoveSubstrings(once)
		assert.Equal(t, once, twice)
	}
}

func TestFindNonOverlapping(t *testing.T) {
	freq := map[string]int{
		"abcdef": 5,
		"defghi": 4, // overlaps abcdef on "def"
		"abc":    4, // prefix of abcdef
		"xyz":    3,
		"qqq":    1, // too rare
	}
	words := []string{"abcdef", "defghi", "abc", "xyz", "qqq"}
	assert.Equal(t, []string{"abcdef", "xyz"}, FindNonOverlapping(words, freq, 3))
}

func TestFindNonOverlappingIgnoresUnalignedOverlap(t *testing.T) {
	// "ef" is shared only off the token grid.
	freq := map[string]int{"abcdef": 3, "efghij": 2}
	got := FindNonOverlapping([]string{"abcdef", "efghij"}, freq, 3)
	assert.Equal(t, []string{"abcdef", "efghij"}, got)
}

func TestAlignedOverlap(t *testing.T) {
	assert.True(t, alignedOverlap("abcdef", "defghi", 3))
	assert.False(t, alignedOverlap("defghi", "abcdef", 3))
	assert.True(t, alignedOverlap("abc", "abcdef", 3))
	assert.False(t, alignedOverlap("abcdef", "abc", 3))
	assert.True(t, alignedOverlap("abcdefghi", "ghixyz", 3))
}
