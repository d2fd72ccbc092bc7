package suggest

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/cognicore/moodlens/pkg/moodlens/internalerr"
)

func TestBandFor(t *testing.T) {
	cases := []struct {
		tone float64
		want Band
	}{
		{-1, Negative},
		{-0.31, Negative},
		{-0.3, Neutral},
		{0, Neutral},
		{0.3, Neutral},
		{0.3000001, Positive},
		{1, Positive},
	}
	for _, tc := range cases {
		if got := BandFor(tc.tone); got != tc.want {
			t.Errorf("BandFor(%v) = %s, want %s", tc.tone, got, tc.want)
		}
	}
}

func TestSelectReturnsExactSet(t *testing.T) {
	sets := DefaultSets()
	sel, err := NewSelector(sets)
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}

	for tone := -1.0; tone <= 1.0; tone += 0.05 {
		got := sel.Select(tone)
		var want []string
		switch {
		case tone < -0.3:
			want = sets.Negative
		case tone > 0.3:
			want = sets.Positive
		default:
			want = sets.Neutral
		}
		if !slices.Equal(got, want) {
			t.Errorf("Select(%v) = %v, want %v", tone, got, want)
		}
	}
}

func TestSelectBoundariesAreNeutral(t *testing.T) {
	sel, err := NewSelector(DefaultSets())
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	neutral := DefaultSets().Neutral

	if got := sel.Select(0.3); !slices.Equal(got, neutral) {
		t.Errorf("Select(0.3) should be neutral, got %v", got)
	}
	if got := sel.Select(-0.3); !slices.Equal(got, neutral) {
		t.Errorf("Select(-0.3) should be neutral, got %v", got)
	}
}

func TestSelectReturnsCopy(t *testing.T) {
	sel, err := NewSelector(DefaultSets())
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}

	got := sel.Select(0.9)
	got[0] = "mutated"

	if sel.Select(0.9)[0] == "mutated" {
		t.Error("Select should not expose internal state")
	}
}

func TestDefaultSetsShape(t *testing.T) {
	sets := DefaultSets()
	for _, band := range []Band{Negative, Neutral, Positive} {
		if n := len(sets.forBand(band)); n != 5 {
			t.Errorf("%s set has %d suggestions, want 5", band, n)
		}
	}
	if err := sets.Validate(); err != nil {
		t.Errorf("default sets should be valid: %v", err)
	}
}

func TestValidateRejectsOverlapAndEmpty(t *testing.T) {
	overlap := DefaultSets()
	overlap.Positive = append(overlap.Positive, overlap.Neutral[0])
	if err := overlap.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("overlapping sets should be rejected, got %v", err)
	}

	empty := DefaultSets()
	empty.Negative = nil
	if _, err := NewSelector(empty); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("empty set should be rejected, got %v", err)
	}
}

func TestBandForNaNIsNeutral(t *testing.T) {
	if got := BandFor(math.NaN()); got != Neutral {
		t.Errorf("BandFor(NaN) = %s, want neutral", got)
	}
}
