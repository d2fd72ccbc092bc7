package encode

import "github.com/cognicore/moodlens/pkg/moodlens/ingest"

// MaxSequenceLength is the fixed input width of the scoring model.
const MaxSequenceLength = 100

// Sequence is an encoded entry: token indices in original order,
// zero-padded on the right.
type Sequence [MaxSequenceLength]int

// Encode tokenizes text and maps it through vocab.
// Tokens beyond MaxSequenceLength are discarded.
func Encode(text string, vocab *Vocabulary) Sequence {
	return EncodeTokens(ingest.Fields(text), vocab)
}

// EncodeTokens maps already tokenized text through vocab.
func EncodeTokens(tokens []string, vocab *Vocabulary) Sequence {
	var seq Sequence
	n := min(len(tokens), MaxSequenceLength)
	for i := 0; i < n; i++ {
		seq[i] = vocab.Lookup(tokens[i])
	}
	return seq
}
