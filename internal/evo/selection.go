package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

var ErrInsufficientPool = errors.New("selection pool too small")

// WordPool orders words by frequency tier, highest first, and keeps only the maximal
// words inside each tier so one motif is not promoted through its own substrings.
func WordPool(words []string, freq map[string]int) []string {
	tiers := map[int][]string{}
	for _, word := range dedupe(words) {
		tiers[freq[word]] = append(tiers[freq[word]], word)
	}
	levels := make([]int, 0, len(tiers))
	for level := range tiers {
		levels = append(levels, level)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(levels)))

	pool := make([]string, 0, len(words))
	for _, level := range levels {
		pool = append(pool, RemoveSubstrings(tiers[level])...)
	}
	return pool
}

// Selector chooses n distinct parents from a word pool.
type Selector interface {
	Name() string
	PickParents(rng *rand.Rand, pool []string, freq map[string]int, n int) ([]string, error)
}

func checkPool(rng *rand.Rand, pool []string, n int) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if n <= 0 {
		return fmt.Errorf("invalid parent count: %d", n)
	}
	if len(pool) < n {
		return fmt.Errorf("%w: need %d parents, pool has %d", ErrInsufficientPool, n, len(pool))
	}
	return nil
}

// UniformSelector samples parents uniformly without replacement.
type UniformSelector struct{}

func (UniformSelector) Name() string {
	return "uniform"
}

func (UniformSelector) PickParents(rng *rand.Rand, pool []string, _ map[string]int, n int) ([]string, error) {
	if err := checkPool(rng, pool, n); err != nil {
		return nil, err
	}
	picked := make([]string, 0, n)
	for _, idx := range rng.Perm(len(pool))[:n] {
		picked = append(picked, pool[idx])
	}
	return picked, nil
}

// TournamentSelector samples TournamentSize words per parent and keeps the most
// frequent, never picking the same word twice.
type TournamentSelector struct {
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParents(rng *rand.Rand, pool []string, freq map[string]int, n int) ([]string, error) {
	if err := checkPool(rng, pool, n); err != nil {
		return nil, err
	}
	size := s.TournamentSize
	if size <= 0 {
		size = 3
	}

	remaining := append([]string(nil), pool...)
	picked := make([]string, 0, n)
	for len(picked) < n {
		rounds := min(size, len(remaining))
		bestIdx := rng.Intn(len(remaining))
		for i := 1; i < rounds; i++ {
			idx := rng.Intn(len(remaining))
			if freq[remaining[idx]] > freq[remaining[bestIdx]] {
				bestIdx = idx
			}
		}
		picked = append(picked, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return picked, nil
}
