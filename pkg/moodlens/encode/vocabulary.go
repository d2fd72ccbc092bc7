package encode

import "strings"

// Vocabulary maps case-folded tokens to non-negative model indices.
// Index 0 is reserved for unknown tokens and padding. A Vocabulary is
// immutable once built; the nil Vocabulary is the empty one.
type Vocabulary struct {
	index map[string]int
}

// NewVocabulary builds a vocabulary from a token→index table.
// Keys are lower-cased; negative indices are dropped; when two keys fold to
// the same token the smaller index wins.
func NewVocabulary(table map[string]int) *Vocabulary {
	index := make(map[string]int, len(table))
	for token, idx := range table {
		if idx < 0 {
			continue
		}
		key := strings.ToLower(token)
		if existing, ok := index[key]; ok && existing <= idx {
			continue
		}
		index[key] = idx
	}
	return &Vocabulary{index: index}
}

// Lookup returns the index for a case-folded token, or 0 when unknown.
func (v *Vocabulary) Lookup(token string) int {
	if v == nil {
		return 0
	}
	return v.index[token]
}

// Len returns the number of known tokens.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.index)
}
