// Package moodlens scores the emotional tone of journal entries and pairs
// each score with keywords, coping suggestions and a trend series.
package moodlens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/cognicore/moodlens/pkg/moodlens/backend"
	"github.com/cognicore/moodlens/pkg/moodlens/degrade"
	"github.com/cognicore/moodlens/pkg/moodlens/encode"
	"github.com/cognicore/moodlens/pkg/moodlens/ingest"
	"github.com/cognicore/moodlens/pkg/moodlens/internalerr"
	"github.com/cognicore/moodlens/pkg/moodlens/keywords"
	"github.com/cognicore/moodlens/pkg/moodlens/metrics"
	"github.com/cognicore/moodlens/pkg/moodlens/stoplist"
	"github.com/cognicore/moodlens/pkg/moodlens/suggest"
	"github.com/cognicore/moodlens/pkg/moodlens/trend"
)

// DefaultInferenceTimeout bounds a single model call.
const DefaultInferenceTimeout = 2 * time.Second

// Backend is the scoring backend used by an Analyzer. *backend.Backend
// implements it.
type Backend interface {
	Initialize(ctx context.Context) error
	State() backend.State
	WaitReady(ctx context.Context) (backend.State, error)
	EncodeTokens(tokens []string) encode.Sequence
	Score(ctx context.Context, seq encode.Sequence) (float64, error)
	Close() error
}

// Analyzer is the analysis engine facade
type Analyzer struct {
	backend     Backend
	pipeline    *ingest.Pipeline
	keywords    *keywords.Extractor
	suggestions *suggest.Selector
	fallback    degrade.Policy
	timeout     time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Options configures an Analyzer. Zero values select the defaults: a
// backend with no model (always degraded), the built-in stoplist and
// suggestions, and the random fallback.
type Options struct {
	Backend          Backend
	Stoplist         *stoplist.Manager
	Suggestions      suggest.Sets
	Fallback         degrade.Policy
	Logger           *slog.Logger
	Metrics          *metrics.Metrics
	InferenceTimeout time.Duration
	StripMarkup      bool
}

// New creates an Analyzer. It does not touch the network; call Initialize
// to load the model.
func New(opts Options) (*Analyzer, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Backend == nil {
		opts.Backend = backend.New(backend.Options{Logger: opts.Logger, Metrics: opts.Metrics})
	}
	if opts.Stoplist == nil {
		opts.Stoplist = stoplist.Default()
	}
	if opts.Suggestions.Negative == nil && opts.Suggestions.Neutral == nil && opts.Suggestions.Positive == nil {
		opts.Suggestions = suggest.DefaultSets()
	}
	if opts.Fallback == nil {
		opts.Fallback = degrade.NewRandom()
	}
	if opts.InferenceTimeout <= 0 {
		opts.InferenceTimeout = DefaultInferenceTimeout
	}

	selector, err := suggest.NewSelector(opts.Suggestions)
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		backend:     opts.Backend,
		pipeline:    ingest.NewPipeline(opts.StripMarkup),
		keywords:    keywords.New(opts.Stoplist),
		suggestions: selector,
		fallback:    opts.Fallback,
		timeout:     opts.InferenceTimeout,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}, nil
}

// Initialize loads the model. A failure is returned for the operator but
// leaves the Analyzer fully usable in degraded mode.
func (a *Analyzer) Initialize(ctx context.Context) error {
	return a.backend.Initialize(ctx)
}

// State reports the backend lifecycle state.
func (a *Analyzer) State() backend.State {
	return a.backend.State()
}

// WaitReady blocks until the backend is Ready or Unavailable, or ctx is done.
func (a *Analyzer) WaitReady(ctx context.Context) (backend.State, error) {
	return a.backend.WaitReady(ctx)
}

// Close releases the model. Later analyses are degraded.
func (a *Analyzer) Close() error {
	return a.backend.Close()
}

// Analyze scores text and assembles the full result. Model problems never
// surface as errors; they produce an OutcomeDegraded result instead. The
// only error is ErrInvalidInput for text that is not valid UTF-8.
// history is passed through to the trend in the order given.
func (a *Analyzer) Analyze(ctx context.Context, text string, history []HistoryEntry) (Result, error) {
	if !utf8.ValidString(text) {
		a.metrics.ObserveAnalysis(metrics.OutcomeRejected, "invalid_input")
		return Result{}, fmt.Errorf("%w: text is not valid UTF-8", internalerr.ErrInvalidInput)
	}

	processed := a.pipeline.Process(text)
	tone, outcome, reason := a.tone(ctx, processed)

	res := Result{
		ToneScore:   tone,
		Keywords:    a.keywords.ExtractTokens(processed.Tokens),
		Suggestions: a.suggestions.Select(tone),
		Trend:       trend.Assemble(history),
		Outcome:     outcome,
		Reason:      reason,
	}

	a.metrics.ObserveAnalysis(string(outcome), string(reason))
	if outcome == OutcomeDegraded {
		a.logger.Warn("[Analyzer] Degraded analysis",
			slog.String("outcome", string(outcome)),
			slog.String("reason", string(reason)),
			slog.String("fallback", a.fallback.Name()),
			slog.Float64("tone", tone))
	} else {
		a.logger.Debug("[Analyzer] Analysis complete",
			slog.String("outcome", string(outcome)),
			slog.Float64("tone", tone),
			slog.Int("keywords", len(res.Keywords)))
	}
	return res, nil
}

func (a *Analyzer) tone(ctx context.Context, p ingest.Processed) (float64, Outcome, Reason) {
	state := a.backend.State()
	if state != backend.StateReady {
		return a.degrade(p.Text), OutcomeDegraded, reasonForState(state)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	r, err := a.backend.Score(ctx, a.backend.EncodeTokens(p.Tokens))
	if err != nil {
		reason := ReasonInferenceFailed
		switch {
		case errors.Is(err, internalerr.ErrModelUnavailable):
			reason = reasonForState(a.backend.State())
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			reason = ReasonTimeout
		}
		a.logger.Warn("[Analyzer] Scoring failed, using fallback",
			slog.String("reason", string(reason)),
			slog.String("error", err.Error()))
		return a.degrade(p.Text), OutcomeDegraded, reason
	}
	return 2*r - 1, OutcomeModel, ReasonNone
}

func (a *Analyzer) degrade(text string) float64 {
	return min(max(a.fallback.Score(text), -1), 1)
}
