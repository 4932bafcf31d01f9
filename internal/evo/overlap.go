package evo

import (
	"sort"
	"strings"
)

// RemoveSubstrings keeps only the maximal words: a word is dropped when a longer or
// equal-length word already kept contains it. Output is ordered by length desc.
func RemoveSubstrings(words []string) []string {
	sorted := dedupe(words)
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})

	kept := make([]string, 0, len(sorted))
	for _, word := range sorted {
		contained := false
		for _, other := range kept {
			if strings.Contains(other, word) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, word)
		}
	}
	return kept
}

// FindNonOverlapping keeps words seen more than once that share no token-aligned
// suffix/prefix overlap with a word kept before them. Candidates are visited by
// frequency desc, then length desc.
func FindNonOverlapping(words []string, freq map[string]int, width int) []string {
	candidates := make([]string, 0, len(words))
	for _, word := range dedupe(words) {
		if freq[word] > 1 {
			candidates = append(candidates, word)
		}
	}
	candidates = rankByFrequency(candidates, freq)

	kept := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		clash := false
		for _, other := range kept {
			if alignedOverlap(candidate, other, width) || alignedOverlap(other, candidate, width) {
				clash = true
				break
			}
		}
		if !clash {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// alignedOverlap reports whether some token-aligned suffix of a (a itself included)
// is a prefix of b.
func alignedOverlap(a, b string, width int) bool {
	for i := 0; i < len(a); i += width {
		suffix := a[i:]
		if len(suffix) <= len(b) && b[:len(suffix)] == suffix {
			return true
		}
	}
	return false
}
