// Package symbol holds the fixed-width token conventions shared by the search and
// merge stages: the row sentinel, token slicing and upstream sequence validation.
package symbol

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultWidth is the character width of one encoded layout column.
	DefaultWidth = 3
	// Sentinel terminates every row of a concatenated encoding.
	Sentinel = "\t"
)

var (
	ErrEmptySequence     = errors.New("symbol sequence is empty")
	ErrMalformedSequence = errors.New("symbol sequence is malformed")
)

// Validate checks the upstream encoding: at least one non-empty row, no row whose
// length is not a multiple of width.
func Validate(encoding string, width int) error {
	if width <= 0 {
		return fmt.Errorf("%w: token width must be > 0, got %d", ErrMalformedSequence, width)
	}
	rows := Rows(encoding)
	if len(rows) == 0 {
		return ErrEmptySequence
	}
	for i, row := range rows {
		if len(row)%width != 0 {
			return fmt.Errorf("%w: row %d has length %d, not a multiple of %d", ErrMalformedSequence, i, len(row), width)
		}
	}
	return nil
}

// Rows splits an encoding on the sentinel and drops empty rows.
func Rows(encoding string) []string {
	parts := strings.Split(encoding, Sentinel)
	rows := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		rows = append(rows, part)
	}
	return rows
}

// Join concatenates rows, terminating each with the sentinel.
func Join(rows []string) string {
	var b strings.Builder
	for _, row := range rows {
		if row == "" {
			continue
		}
		b.WriteString(row)
		b.WriteString(Sentinel)
	}
	return b.String()
}

// Tokens slices s into consecutive width-sized tokens. A trailing partial token is
// dropped.
func Tokens(s string, width int) []string {
	if width <= 0 || len(s) < width {
		return nil
	}
	out := make([]string, 0, len(s)/width)
	for i := 0; i+width <= len(s); i += width {
		out = append(out, s[i:i+width])
	}
	return out
}

// TokenCount is the number of whole tokens in s.
func TokenCount(s string, width int) int {
	if width <= 0 {
		return 0
	}
	return len(s) / width
}

// Reverse returns word with its token order reversed; a mirrored layout cell
// encodes as the reversed token sequence.
func Reverse(word string, width int) string {
	tokens := Tokens(word, width)
	var b strings.Builder
	b.Grow(len(word))
	for i := len(tokens) - 1; i >= 0; i-- {
		b.WriteString(tokens[i])
	}
	return b.String()
}

// ContentLength is the length of s with sentinels removed.
func ContentLength(s string) int {
	return len(s) - strings.Count(s, Sentinel)*len(Sentinel)
}

// StartsWithMarker reports whether s begins with a digit. Digits only ever close an
// upstream token, so no motif can start with one.
func StartsWithMarker(s string) bool {
	if s == "" {
		return false
	}
	return s[0] >= '0' && s[0] <= '9'
}
