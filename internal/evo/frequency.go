package evo

import (
	"sort"
	"strings"

	"motifmine/internal/symbol"
)

// CountFrequency counts each word in text with a left-to-right non-overlapping scan.
func CountFrequency(population []string, text string) map[string]int {
	freq := make(map[string]int, len(population))
	for _, word := range population {
		if word == "" {
			continue
		}
		if _, ok := freq[word]; ok {
			continue
		}
		freq[word] = strings.Count(text, word)
	}
	return freq
}

// FilterByFrequency keeps words seen more than once. Order is preserved.
func FilterByFrequency(population []string, freq map[string]int) []string {
	out := make([]string, 0, len(population))
	for _, word := range population {
		if freq[word] > 1 {
			out = append(out, word)
		}
	}
	return out
}

// Fitness consumes text with the candidates, most frequent then longest first, and
// returns the covered fraction of non-sentinel content together with what is left.
// A region consumed by an earlier candidate is never revisited.
func Fitness(text string, population []string, freq map[string]int) (float64, string) {
	total := symbol.ContentLength(text)
	ranked := rankByFrequency(dedupe(population), freq)

	residual := text
	for _, word := range ranked {
		if word == "" {
			continue
		}
		residual = strings.ReplaceAll(residual, word, symbol.Sentinel)
	}
	residual = strings.ReplaceAll(residual, symbol.Sentinel, "")
	if total == 0 {
		return 0, residual
	}
	return 1 - float64(len(residual))/float64(total), residual
}

// rankByFrequency orders words by frequency desc, length desc, then lexically.
func rankByFrequency(words []string, freq map[string]int) []string {
	out := append([]string(nil), words...)
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := freq[out[i]], freq[out[j]]
		if fi != fj {
			return fi > fj
		}
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}
