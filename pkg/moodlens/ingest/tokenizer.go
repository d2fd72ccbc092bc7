package ingest

import (
	"strings"
	"unicode/utf8"
)

// Fields case-folds text and splits it on runs of Unicode whitespace.
// Punctuation is left attached to its token, so "开心!" and "开心" are distinct.
// Leading and trailing whitespace never produce empty tokens.
func Fields(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// RuneLen returns the length of a token in characters rather than bytes,
// so a single CJK character counts as 1.
func RuneLen(token string) int {
	return utf8.RuneCountInString(token)
}
