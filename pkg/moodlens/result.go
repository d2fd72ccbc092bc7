package moodlens

import (
	"github.com/cognicore/moodlens/pkg/moodlens/backend"
	"github.com/cognicore/moodlens/pkg/moodlens/trend"
)

// Outcome says where a tone score came from.
type Outcome string

const (
	// OutcomeModel is a genuine model score.
	OutcomeModel Outcome = "model"
	// OutcomeDegraded is a fallback score; Reason says why.
	OutcomeDegraded Outcome = "degraded"
)

// Reason explains a degraded result.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNotInitialized  Reason = "not_initialized"
	ReasonLoading         Reason = "loading"
	ReasonUnavailable     Reason = "unavailable"
	ReasonInferenceFailed Reason = "inference_failed"
	ReasonTimeout         Reason = "timeout"
)

func reasonForState(s backend.State) Reason {
	switch s {
	case backend.StateUninitialized:
		return ReasonNotInitialized
	case backend.StateLoading:
		return ReasonLoading
	default:
		return ReasonUnavailable
	}
}

// HistoryEntry is a prior journal entry passed to Analyze for the trend.
type HistoryEntry = trend.HistoryEntry

// Result is the analysis of one journal entry. Degraded results have the
// same shape as model results; only Outcome and Reason differ.
type Result struct {
	ToneScore   float64       `json:"toneScore"`
	Keywords    []string      `json:"keywords"`
	Suggestions []string      `json:"suggestions"`
	Trend       []trend.Point `json:"trend,omitempty"`
	Outcome     Outcome       `json:"outcome"`
	Reason      Reason        `json:"reason,omitempty"`
}

// Degraded reports whether the tone score came from the fallback policy.
func (r Result) Degraded() bool {
	return r.Outcome == OutcomeDegraded
}
