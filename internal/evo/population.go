package evo

import (
	"fmt"
	"math/rand"
	"sort"

	"motifmine/internal/symbol"
)

// maxAttemptsFactor bounds random draws per requested individual; short rows may
// hold fewer distinct substrings than the population size.
const maxAttemptsFactor = 20

// SizeBounds is the inclusive individual length range, in tokens.
type SizeBounds struct {
	Lower int `json:"lower" yaml:"lower"`
	Upper int `json:"upper" yaml:"upper"`
}

func (b SizeBounds) Validate() error {
	if b.Lower <= 0 {
		return fmt.Errorf("lower size must be > 0, got %d", b.Lower)
	}
	if b.Upper < b.Lower {
		return fmt.Errorf("upper size must be >= lower size, got lower=%d upper=%d", b.Lower, b.Upper)
	}
	return nil
}

// Clamp fits the bounds to a text of available tokens. The upper bound never
// exceeds the text and the lower bound never exceeds the upper.
func (b SizeBounds) Clamp(available int) SizeBounds {
	out := b
	if out.Upper > available {
		out.Upper = available
	}
	if out.Lower < 1 {
		out.Lower = 1
	}
	if out.Lower > out.Upper {
		out.Lower = out.Upper
	}
	return out
}

// Admits reports whether word has a length inside the bounds.
func (b SizeBounds) Admits(word string, width int) bool {
	return len(word) >= b.Lower*width && len(word) <= b.Upper*width
}

// CreateIndividual draws one token-aligned substring of text. It returns "" for an
// empty text.
func CreateIndividual(rng *rand.Rand, text string, bounds SizeBounds, width int) string {
	available := symbol.TokenCount(text, width)
	if available == 0 {
		return ""
	}
	b := bounds.Clamp(available)
	tokens := b.Lower + rng.Intn(b.Upper-b.Lower+1)
	starts := available - tokens + 1
	start := rng.Intn(starts) * width
	return text[start : start+tokens*width]
}

// GeneratePopulation returns size-len(carry) unique random individuals unioned with
// the carry-over cells. The result is sorted.
func GeneratePopulation(rng *rand.Rand, size int, text string, bounds SizeBounds, carry []string, width int) []string {
	seen := make(map[string]struct{}, size)
	want := size - len(carry)
	attempts := want * maxAttemptsFactor
	for len(seen) < want && attempts > 0 {
		attempts--
		individual := CreateIndividual(rng, text, bounds, width)
		if individual == "" {
			break
		}
		seen[individual] = struct{}{}
	}
	for _, cell := range carry {
		if cell == "" {
			continue
		}
		seen[cell] = struct{}{}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func dedupe(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return sortedKeys(seen)
}
