// Package pathgraph tokenizes a symbol sequence against a node vocabulary and
// builds the weighted transition graph of the resulting path.
package pathgraph

import (
	"sort"
	"strings"
)

// SortVocabulary returns the unique non-empty words ordered by length desc, then
// lexically. This is the order in which Tokenize tries candidates.
func SortVocabulary(vocab []string) []string {
	seen := make(map[string]struct{}, len(vocab))
	out := make([]string, 0, len(vocab))
	for _, word := range vocab {
		if word == "" {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// Path is the token sequence emitted by a greedy scan. Missed counts the characters
// no vocabulary word could explain.
type Path struct {
	Tokens []string `json:"tokens"`
	Missed int      `json:"missed"`
}

// Joined is the text the path explains.
func (p Path) Joined() string {
	return strings.Join(p.Tokens, "")
}

// Count is the number of times token appears in the path.
func (p Path) Count(token string) int {
	n := 0
	for _, t := range p.Tokens {
		if t == token {
			n++
		}
	}
	return n
}

// TokenSet is the set of distinct tokens on the path.
func (p Path) TokenSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.Tokens))
	for _, t := range p.Tokens {
		set[t] = struct{}{}
	}
	return set
}

// Tokenizer matches the longest vocabulary word first at every position.
type Tokenizer struct {
	byLead map[byte][]string
}

func NewTokenizer(vocab []string) *Tokenizer {
	t := &Tokenizer{byLead: make(map[byte][]string)}
	for _, word := range SortVocabulary(vocab) {
		t.byLead[word[0]] = append(t.byLead[word[0]], word)
	}
	return t
}

// Tokenize scans seq left to right. A position no word matches is skipped one
// character at a time.
func (t *Tokenizer) Tokenize(seq string) Path {
	path := Path{Tokens: make([]string, 0, len(seq)/3+1)}
	for i := 0; i < len(seq); {
		matched := ""
		for _, word := range t.byLead[seq[i]] {
			if strings.HasPrefix(seq[i:], word) {
				matched = word
				break
			}
		}
		if matched == "" {
			path.Missed++
			i++
			continue
		}
		path.Tokens = append(path.Tokens, matched)
		i += len(matched)
	}
	return path
}

// Tokenize is a one-shot NewTokenizer(vocab).Tokenize(seq).
func Tokenize(seq string, vocab []string) Path {
	return NewTokenizer(vocab).Tokenize(seq)
}
