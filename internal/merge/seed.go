package merge

import (
	"sort"
	"strings"

	"motifmine/internal/pathgraph"
	"motifmine/internal/symbol"
)

// SeedVocabulary derives the starting node vocabulary from the search cells. Cells
// found in the encoding (directly or token-reversed) are grouped by containment and
// each group contributes its most frequent member. Residual segments that repeat
// become nodes, what remains is split into raw tokens, and every row is finally
// checked for tokens the vocabulary still cannot reach. The sentinel is included.
func SeedVocabulary(encoding string, cells []string, width int) []string {
	if width <= 0 {
		width = symbol.DefaultWidth
	}

	var candidates []string
	for _, cell := range byLengthDesc(unique(cells)) {
		if strings.Contains(encoding, cell) || strings.Contains(encoding, symbol.Reverse(cell, width)) {
			candidates = append(candidates, cell)
		}
	}

	residual := encoding
	var nodes []string
	for _, group := range groupBySubstring(candidates) {
		representative := mostFrequent(group, encoding)
		if strings.Contains(residual, representative) {
			nodes = append(nodes, representative)
		}
		residual = strings.ReplaceAll(residual, representative, symbol.Sentinel)
	}

	nodes = append(nodes, repeatedSegments(residual)...)
	for _, node := range byLengthDesc(nodes) {
		residual = strings.ReplaceAll(residual, node, symbol.Sentinel)
	}
	for _, segment := range symbol.Rows(residual) {
		nodes = append(nodes, symbol.Tokens(segment, width)...)
	}
	nodes = pathgraph.SortVocabulary(append(nodes, symbol.Sentinel))

	for _, row := range symbol.Rows(encoding) {
		path := pathgraph.Tokenize(row, nodes)
		joined := path.Joined()
		if joined == row {
			continue
		}
		nodes = pathgraph.SortVocabulary(append(nodes, missedTokens(joined, row, width)...))
	}
	return nodes
}

func unique(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func byLengthDesc(words []string) []string {
	out := append([]string(nil), words...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// groupBySubstring visits words shortest first; each ungrouped word opens a group
// collecting every later ungrouped word that contains it. Groups are ordered longest
// member first.
func groupBySubstring(words []string) [][]string {
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) < len(sorted[j]) })

	grouped := make(map[string]struct{}, len(sorted))
	var groups [][]string
	for i, word := range sorted {
		if _, ok := grouped[word]; ok {
			continue
		}
		group := []string{word}
		grouped[word] = struct{}{}
		for _, other := range sorted[i+1:] {
			if _, ok := grouped[other]; ok {
				continue
			}
			if strings.Contains(other, word) {
				group = append(group, other)
				grouped[other] = struct{}{}
			}
		}
		groups = append(groups, byLengthDesc(group))
	}
	return groups
}

// mostFrequent returns the first member of group with the highest count in text.
func mostFrequent(group []string, text string) string {
	best, bestCount := group[0], strings.Count(text, group[0])
	for _, word := range group[1:] {
		if n := strings.Count(text, word); n > bestCount {
			best, bestCount = word, n
		}
	}
	return best
}

// repeatedSegments lists, in order of first appearance, the sentinel-delimited
// segments of residual that occur more than once.
func repeatedSegments(residual string) []string {
	counts := make(map[string]int)
	var order []string
	for _, segment := range symbol.Rows(residual) {
		if counts[segment] == 0 {
			order = append(order, segment)
		}
		counts[segment]++
	}
	out := make([]string, 0, len(order))
	for _, segment := range order {
		if counts[segment] > 1 {
			out = append(out, segment)
		}
	}
	return out
}

// missedTokens is the symmetric difference of the tokens of what a path explained
// and the tokens of the row it was built from.
func missedTokens(explained, row string, width int) []string {
	a := tokenSet(explained, width)
	b := tokenSet(row, width)
	var out []string
	for token := range a {
		if _, ok := b[token]; !ok {
			out = append(out, token)
		}
	}
	for token := range b {
		if _, ok := a[token]; !ok {
			out = append(out, token)
		}
	}
	sort.Strings(out)
	return out
}

func tokenSet(s string, width int) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range symbol.Tokens(s, width) {
		set[token] = struct{}{}
	}
	return set
}
