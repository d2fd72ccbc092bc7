package suggest

import (
	"fmt"

	"github.com/cognicore/moodlens/pkg/moodlens/internalerr"
)

// Tone thresholds. Both comparisons are strict, so exactly ±0.3 is neutral.
const (
	NegativeThreshold = -0.3
	PositiveThreshold = 0.3
)

// Band is a tone-score range with its own suggestion set.
type Band int

const (
	Negative Band = iota
	Neutral
	Positive
)

func (b Band) String() string {
	switch b {
	case Negative:
		return "negative"
	case Positive:
		return "positive"
	default:
		return "neutral"
	}
}

// BandFor maps a tone score in [-1, 1] to its band.
func BandFor(tone float64) Band {
	switch {
	case tone < NegativeThreshold:
		return Negative
	case tone > PositiveThreshold:
		return Positive
	default:
		return Neutral
	}
}

// Sets are the curated suggestion lists, one per band, in authored order.
type Sets struct {
	Negative []string `yaml:"negative"`
	Neutral  []string `yaml:"neutral"`
	Positive []string `yaml:"positive"`
}

// DefaultSets returns the built-in coping and reinforcement prompts.
func DefaultSets() Sets {
	return Sets{
		Negative: []string{
			"建议尝试5分钟快速减压冥想",
			"听一听舒缓的自然音乐",
			"和朋友聊聊天",
			"做一些轻度运动来改善心情",
			"尝试写下让你感到困扰的事情",
		},
		Neutral: []string{
			"记录今天的一个小确幸",
			"尝试新的兴趣爱好",
			"制定一个短期小目标",
			"整理一下个人空间",
			"练习正念呼吸",
		},
		Positive: []string{
			"分享你的快乐给身边的人",
			"记录下这个美好的时刻",
			"保持这份好心情继续前进",
			"奖励自己一个小礼物",
			"规划一次令人期待的活动",
		},
	}
}

// Validate requires every set to be non-empty and the three sets to be
// pairwise disjoint, so a suggestion identifies its band.
func (s Sets) Validate() error {
	owner := make(map[string]Band)
	for _, band := range []Band{Negative, Neutral, Positive} {
		items := s.forBand(band)
		if len(items) == 0 {
			return fmt.Errorf("%w: %s suggestion set is empty", internalerr.ErrInvalidConfig, band)
		}
		for _, item := range items {
			if item == "" {
				return fmt.Errorf("%w: blank suggestion in %s set", internalerr.ErrInvalidConfig, band)
			}
			if prev, ok := owner[item]; ok {
				return fmt.Errorf("%w: suggestion %q appears in %s and %s sets", internalerr.ErrInvalidConfig, item, prev, band)
			}
			owner[item] = band
		}
	}
	return nil
}

func (s Sets) forBand(b Band) []string {
	switch b {
	case Negative:
		return s.Negative
	case Positive:
		return s.Positive
	default:
		return s.Neutral
	}
}

// Selector is a pure lookup from tone score to suggestion set.
type Selector struct {
	sets Sets
}

// NewSelector validates sets and returns a selector over a private copy.
func NewSelector(sets Sets) (*Selector, error) {
	if err := sets.Validate(); err != nil {
		return nil, err
	}
	return &Selector{sets: Sets{
		Negative: clone(sets.Negative),
		Neutral:  clone(sets.Neutral),
		Positive: clone(sets.Positive),
	}}, nil
}

// Select returns the suggestion set for tone. The caller owns the slice.
func (s *Selector) Select(tone float64) []string {
	return clone(s.sets.forBand(BandFor(tone)))
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
