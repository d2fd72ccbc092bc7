// Package keywords ranks the informative tokens of a journal entry by
// frequency.
package keywords

import (
	"sort"

	"github.com/cognicore/moodlens/pkg/moodlens/ingest"
	"github.com/cognicore/moodlens/pkg/moodlens/stoplist"
)

// MaxKeywords caps the number of keywords returned for one entry.
const MaxKeywords = 5

// Extractor picks keywords using a stoplist.
type Extractor struct {
	stops *stoplist.Manager
	limit int
}

// New creates an extractor. A nil stoplist disables stopword filtering.
func New(stops *stoplist.Manager) *Extractor {
	return &Extractor{stops: stops, limit: MaxKeywords}
}

// Extract tokenizes text and returns its keywords.
func (e *Extractor) Extract(text string) []string {
	return e.ExtractTokens(ingest.Fields(text))
}

// ExtractTokens returns up to MaxKeywords distinct tokens ranked by
// descending frequency. Ties go to the token seen first. Tokens of one
// character and stopwords never qualify. The result is never nil.
func (e *Extractor) ExtractTokens(tokens []string) []string {
	type candidate struct {
		token string
		count int
		first int
	}

	byToken := make(map[string]*candidate)
	var order []*candidate
	for pos, tok := range tokens {
		if ingest.RuneLen(tok) <= 1 || e.stops.IsStop(tok) {
			continue
		}
		if c, ok := byToken[tok]; ok {
			c.count++
			continue
		}
		c := &candidate{token: tok, count: 1, first: pos}
		byToken[tok] = c
		order = append(order, c)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	n := min(len(order), e.limit)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = order[i].token
	}
	return out
}
