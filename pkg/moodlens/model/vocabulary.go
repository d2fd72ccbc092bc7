package model

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cognicore/moodlens/pkg/moodlens/encode"
)

// metadata accepts both the flat {"vocabulary": {...}} layout and the
// TF.js sentiment metadata layout (word_index shifted by index_from, capped
// at vocabulary_size).
type metadata struct {
	Vocabulary     map[string]int `json:"vocabulary"`
	WordIndex      map[string]int `json:"word_index"`
	IndexFrom      int            `json:"index_from"`
	VocabularySize int            `json:"vocabulary_size"`
	MaxLen         int            `json:"max_len"`
}

// ParseVocabulary decodes the companion metadata resource of a model.
func ParseVocabulary(r io.Reader) (*encode.Vocabulary, error) {
	var md metadata
	if err := json.NewDecoder(r).Decode(&md); err != nil {
		return nil, fmt.Errorf("decode vocabulary metadata: %w", err)
	}
	if md.MaxLen != 0 && md.MaxLen != encode.MaxSequenceLength {
		return nil, fmt.Errorf("metadata max_len %d, encoder produces %d", md.MaxLen, encode.MaxSequenceLength)
	}

	if len(md.Vocabulary) > 0 {
		return encode.NewVocabulary(md.Vocabulary), nil
	}
	if len(md.WordIndex) == 0 {
		return nil, fmt.Errorf("metadata has no vocabulary")
	}

	table := make(map[string]int, len(md.WordIndex))
	for word, idx := range md.WordIndex {
		shifted := idx + md.IndexFrom
		if md.VocabularySize > 0 && shifted >= md.VocabularySize {
			continue
		}
		table[word] = shifted
	}
	return encode.NewVocabulary(table), nil
}
