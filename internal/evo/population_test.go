package evo

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRow = "aa0bb1cc2aa0bb1cc2dd3aa0bb1cc2ee4ff5aa0bb1"

func TestCreateIndividualRespectsBoundsAndAlignment(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bounds := SizeBounds{Lower: 2, Upper: 5}

	for i := 0; i < 500; i++ {
		individual := CreateIndividual(rng, sampleRow, bounds, 3)
		require.Zero(t, len(individual)%3, "individual %q is not token aligned", individual)
		require.GreaterOrEqual(t, len(individual), bounds.Lower*3)
		require.LessOrEqual(t, len(individual), bounds.Upper*3)
		require.True(t, strings.Contains(sampleRow, individual))
	}
}

func TestCreateIndividualCanReachTextEnd(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	text := "aa0bb1cc2"
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[CreateIndividual(rng, text, SizeBounds{Lower: 1, Upper: 1}, 3)] = true
	}
	assert.True(t, seen["cc2"], "last token must be a valid start")
	assert.Len(t, seen, 3)
}

func TestCreateIndividualEmptyText(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, "", CreateIndividual(rng, "", SizeBounds{Lower: 1, Upper: 3}, 3))
}

func TestSizeBoundsClampDegenerate(t *testing.T) {
	b := SizeBounds{Lower: 3, Upper: 40}.Clamp(2)
	assert.Equal(t, SizeBounds{Lower: 2, Upper: 2}, b)

	b = SizeBounds{Lower: 3, Upper: 40}.Clamp(100)
	assert.Equal(t, SizeBounds{Lower: 3, Upper: 40}, b)
}

func TestSizeBoundsValidate(t *testing.T) {
	require.NoError(t, SizeBounds{Lower: 1, Upper: 1}.Validate())
	require.Error(t, SizeBounds{Lower: 0, Upper: 1}.Validate())
	require.Error(t, SizeBounds{Lower: 4, Upper: 3}.Validate())
}

func TestGeneratePopulationIncludesCarryAndIsUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	carry := []string{"zz9yy8", "qq7rr6"}
	population := GeneratePopulation(rng, 10, sampleRow, SizeBounds{Lower: 1, Upper: 4}, carry, 3)

	assert.Len(t, population, 10)
	assert.Subset(t, population, carry)
	seen := map[string]bool{}
	for _, word := range population {
		require.False(t, seen[word], "duplicate %q", word)
		seen[word] = true
	}
}

func TestGeneratePopulationTerminatesOnTinyText(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	population := GeneratePopulation(rng, 50, "aa0bb1", SizeBounds{Lower: 1, Upper: 2}, nil, 3)
	assert.ElementsMatch(t, []string{"aa0", "bb1", "aa0bb1"}, population)
}
