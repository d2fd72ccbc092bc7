package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVocabularyFlat(t *testing.T) {
	vocab, err := ParseVocabulary(strings.NewReader(`{"vocabulary":{"Happy":3,"sad":4}}`))
	require.NoError(t, err)

	assert.Equal(t, 3, vocab.Lookup("happy"))
	assert.Equal(t, 4, vocab.Lookup("sad"))
	assert.Equal(t, 0, vocab.Lookup("missing"))
}

func TestParseVocabularyWordIndex(t *testing.T) {
	body := `{"word_index":{"the":1,"good":2,"rare":9000},"index_from":3,"vocabulary_size":10,"max_len":100}`

	vocab, err := ParseVocabulary(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, 4, vocab.Lookup("the"))
	assert.Equal(t, 5, vocab.Lookup("good"))
	assert.Equal(t, 0, vocab.Lookup("rare"), "indices past vocabulary_size map to unknown")
	assert.Equal(t, 2, vocab.Len())
}

func TestParseVocabularyErrors(t *testing.T) {
	for name, body := range map[string]string{
		"not json":     `[`,
		"empty":        `{}`,
		"wrong maxlen": `{"vocabulary":{"a":1},"max_len":200}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseVocabulary(strings.NewReader(body))
			assert.Error(t, err)
		})
	}
}
