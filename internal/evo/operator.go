package evo

import (
	"errors"
	"math/rand"
	"strings"
)

var (
	ErrNoOverlap    = errors.New("parents share no token-aligned overlap")
	ErrNoOccurrence = errors.New("parent does not occur in text")
	ErrNoParents    = errors.New("operator requires at least one parent")
)

// Operator breeds candidate words from parents. Each call draws its randomness from
// rng; an error reports that the operator does not apply to these parents.
type Operator interface {
	Name() string
	Apply(rng *rand.Rand, parents ...string) ([]string, error)
}

// OverlapCrossover merges two parents across their longest token-aligned overlap.
type OverlapCrossover struct {
	Width int
}

func (OverlapCrossover) Name() string {
	return "overlap_crossover"
}

// Apply returns the overlap, the merged word and each parent with the overlap cut
// out.
func (o OverlapCrossover) Apply(_ *rand.Rand, parents ...string) ([]string, error) {
	if len(parents) < 2 {
		return nil, ErrNoParents
	}
	a, b := parents[0], parents[1]
	overlap, merged := OverlapMerge(a, b, o.Width)
	if overlap == "" {
		return nil, ErrNoOverlap
	}
	return []string{
		overlap,
		merged,
		strings.ReplaceAll(a, overlap, ""),
		strings.ReplaceAll(b, overlap, ""),
	}, nil
}

// OverlapMerge finds the longest proper token-aligned overlap between a suffix of one
// word and a prefix of the other, in both orders, and joins the words across it.
// Ties favour b followed by a.
func OverlapMerge(a, b string, width int) (string, string) {
	ab := suffixPrefixOverlap(a, b, width)
	ba := suffixPrefixOverlap(b, a, width)
	if len(ab) > len(ba) {
		return ab, a + b[len(ab):]
	}
	return ba, b + a[len(ba):]
}

func suffixPrefixOverlap(a, b string, width int) string {
	best := ""
	limit := min(len(a), len(b))
	for n := width; n < limit; n += width {
		if a[len(a)-n:] == b[:n] {
			best = a[len(a)-n:]
		}
	}
	return best
}

// ShortenMutation trims a random whole number of tokens from both ends, the right
// end and the left end of its parent.
type ShortenMutation struct {
	Width    int
	MaxSteps int
}

func (ShortenMutation) Name() string {
	return "shorten"
}

func (m ShortenMutation) Apply(rng *rand.Rand, parents ...string) ([]string, error) {
	if len(parents) == 0 {
		return nil, ErrNoParents
	}
	word := parents[0]
	left := m.Width * (1 + rng.Intn(m.steps()))
	right := m.Width * (1 + rng.Intn(m.steps()))
	both := safeSlice(word, left, len(word)-right)

	right = m.Width * (1 + rng.Intn(m.steps()))
	rightOnly := safeSlice(word, 0, len(word)-right)

	left = m.Width * (1 + rng.Intn(m.steps()))
	leftOnly := safeSlice(word, left, len(word))

	return []string{both, rightOnly, leftOnly}, nil
}

func (m ShortenMutation) steps() int {
	if m.MaxSteps <= 0 {
		return 1
	}
	return m.MaxSteps
}

// ExtendMutation grows its parent inside Text around a random token-aligned
// occurrence: both directions, left only and right only.
type ExtendMutation struct {
	Text     string
	Width    int
	MaxSteps int
}

func (ExtendMutation) Name() string {
	return "extend"
}

func (m ExtendMutation) Apply(rng *rand.Rand, parents ...string) ([]string, error) {
	if len(parents) == 0 {
		return nil, ErrNoParents
	}
	word := parents[0]
	occurrences := alignedOccurrences(m.Text, word, m.Width)
	if len(occurrences) == 0 {
		return nil, ErrNoOccurrence
	}
	start := occurrences[rng.Intn(len(occurrences))]
	end := start + len(word)
	steps := m.MaxSteps
	if steps <= 0 {
		steps = 1
	}
	grow := func() int { return m.Width * (1 + rng.Intn(steps)) }

	both := safeSlice(m.Text, max(start-grow(), 0), min(end+grow(), len(m.Text)))
	left := safeSlice(m.Text, max(start-grow(), 0), end)
	right := safeSlice(m.Text, start, min(end+grow(), len(m.Text)))
	return []string{both, left, right}, nil
}

func alignedOccurrences(text, word string, width int) []int {
	if word == "" || width <= 0 {
		return nil
	}
	var out []int
	for i := 0; i+len(word) <= len(text); i += width {
		if strings.HasPrefix(text[i:], word) {
			out = append(out, i)
		}
	}
	return out
}

func safeSlice(s string, from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(s) {
		to = len(s)
	}
	if from >= to {
		return ""
	}
	return s[from:to]
}
