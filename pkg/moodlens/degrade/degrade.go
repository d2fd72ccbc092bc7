// Package degrade provides the tone scores used when the scoring backend
// cannot produce one.
package degrade

import (
	"math/rand/v2"
	"sync"

	"github.com/jonreiter/govader"
)

// Policy produces a fallback tone score in [-1, 1] for text.
type Policy interface {
	Name() string
	Score(text string) float64
}

// Random samples uniformly over [-1, 1] and ignores the text.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates the default policy. Passing a seed makes the sequence
// reproducible.
func NewRandom(seed ...uint64) *Random {
	var src rand.Source
	if len(seed) > 0 {
		src = rand.NewPCG(seed[0], seed[0]^0x9e3779b97f4a7c15)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Random{rng: rand.New(src)}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Score(string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()*2 - 1
}

// Lexicon scores text with the VADER lexicon. Its compound score is
// already in [-1, 1]. Results are still reported as degraded.
type Lexicon struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewLexicon creates a VADER-backed policy.
func NewLexicon() *Lexicon {
	return &Lexicon{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (l *Lexicon) Name() string { return "lexicon" }

func (l *Lexicon) Score(text string) float64 {
	return l.analyzer.PolarityScores(text).Compound
}
