// Package backend owns the lifecycle of the sentiment model: fetching its
// artifacts once, exposing its readiness, and running bounded inference.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cognicore/moodlens/pkg/moodlens/encode"
	"github.com/cognicore/moodlens/pkg/moodlens/internalerr"
	"github.com/cognicore/moodlens/pkg/moodlens/metrics"
	"github.com/cognicore/moodlens/pkg/moodlens/model"
)

// errNoSource marks a backend constructed without artifacts. Such a backend
// goes straight to StateUnavailable and the analyzer runs degraded.
var errNoSource = errors.New("no model source configured")

// Options configures a Backend.
type Options struct {
	Source        Source
	ModelRef      string
	VocabularyRef string
	Logger        *slog.Logger
	Metrics       *metrics.Metrics

	// LoadModel parses the model artifact. Defaults to model.ParseModel.
	LoadModel func(io.Reader) (model.Model, error)
}

// Backend is safe for concurrent use.
type Backend struct {
	opts   Options
	logger *slog.Logger

	state atomic.Int32
	group singleflight.Group

	mu      sync.RWMutex
	model   model.Model
	vocab   *encode.Vocabulary
	initErr error

	done     chan struct{}
	doneOnce sync.Once
}

// New returns an uninitialized Backend. No I/O happens until Initialize.
func New(opts Options) *Backend {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.LoadModel == nil {
		opts.LoadModel = func(r io.Reader) (model.Model, error) {
			return model.ParseModel(r)
		}
	}
	b := &Backend{
		opts:   opts,
		logger: opts.Logger,
		done:   make(chan struct{}),
	}
	opts.Metrics.SetBackendState(int(StateUninitialized))
	return b
}

// State returns the current lifecycle state.
func (b *Backend) State() State {
	return State(b.state.Load())
}

// Done is closed once the backend reaches a terminal state.
func (b *Backend) Done() <-chan struct{} {
	return b.done
}

// WaitReady blocks until a terminal state or ctx is done.
func (b *Backend) WaitReady(ctx context.Context) (State, error) {
	select {
	case <-b.done:
		return b.State(), nil
	case <-ctx.Done():
		return b.State(), ctx.Err()
	}
}

// Initialize fetches and parses the model and vocabulary. Concurrent and
// repeated calls share one load; after a terminal state it returns the
// recorded outcome without further I/O. A failed load leaves the backend
// Unavailable for the rest of its life.
func (b *Backend) Initialize(ctx context.Context) error {
	if err, ok := b.terminal(); ok {
		return err
	}

	ch := b.group.DoChan("init", func() (any, error) {
		if err, ok := b.terminal(); ok {
			return nil, err
		}
		return nil, b.load(ctx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", internalerr.ErrArtifactFetch, ctx.Err())
	}
}

func (b *Backend) terminal() (error, bool) {
	if !b.State().Terminal() {
		return nil, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initErr, true
}

func (b *Backend) load(ctx context.Context) error {
	if !b.transition(StateUninitialized, StateLoading) {
		// Closed before the load started.
		if err, ok := b.terminal(); ok {
			return err
		}
		return internalerr.ErrModelUnavailable
	}
	start := time.Now()
	b.logger.Info("[Backend] Loading sentiment model",
		slog.String("model", b.opts.ModelRef),
		slog.String("vocabulary", b.opts.VocabularyRef))

	m, vocab, err := b.fetch(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", internalerr.ErrArtifactFetch, err)
		b.logger.Error("[Backend] Model unavailable, analyses will be degraded",
			slog.String("error", err.Error()))
		b.finish(err)
		return err
	}

	b.mu.Lock()
	if !b.state.CompareAndSwap(int32(StateLoading), int32(StateReady)) {
		// Closed while loading.
		closedErr := b.initErr
		b.mu.Unlock()
		m.Close()
		return closedErr
	}
	b.model = m
	b.vocab = vocab
	b.opts.Metrics.SetBackendState(int(StateReady))
	b.mu.Unlock()
	b.doneOnce.Do(func() { close(b.done) })

	b.logger.Info("[Backend] Sentiment model ready",
		slog.Int("vocabulary_size", vocab.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (b *Backend) fetch(ctx context.Context) (model.Model, *encode.Vocabulary, error) {
	if b.opts.Source == nil || b.opts.ModelRef == "" || b.opts.VocabularyRef == "" {
		return nil, nil, errNoSource
	}

	var m model.Model
	err := b.readArtifact(ctx, "model", b.opts.ModelRef, func(r io.Reader) error {
		var err error
		m, err = b.opts.LoadModel(r)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	var vocab *encode.Vocabulary
	err = b.readArtifact(ctx, "vocabulary", b.opts.VocabularyRef, func(r io.Reader) error {
		var err error
		vocab, err = model.ParseVocabulary(r)
		return err
	})
	if err != nil {
		m.Close()
		return nil, nil, err
	}
	return m, vocab, nil
}

func (b *Backend) readArtifact(ctx context.Context, kind, ref string, parse func(io.Reader) error) (err error) {
	start := time.Now()
	defer func() { b.opts.Metrics.ObserveFetch(kind, time.Since(start), err) }()

	rc, err := b.opts.Source.Open(ctx, ref)
	if err != nil {
		return fmt.Errorf("open %s %s: %w", kind, ref, err)
	}
	defer rc.Close()

	if err := parse(rc); err != nil {
		return fmt.Errorf("parse %s %s: %w", kind, ref, err)
	}
	return nil
}

// transition moves the state from one value to another and reports
// whether the backend was still in from.
func (b *Backend) transition(from, to State) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	b.opts.Metrics.SetBackendState(int(to))
	return true
}

// finish moves the backend to Unavailable from any state and detaches the
// loaded model, if any. The first recorded error wins.
func (b *Backend) finish(err error) model.Model {
	b.mu.Lock()
	m := b.model
	b.model = nil
	if b.initErr == nil {
		b.initErr = err
	}
	b.state.Store(int32(StateUnavailable))
	b.opts.Metrics.SetBackendState(int(StateUnavailable))
	b.mu.Unlock()
	b.doneOnce.Do(func() { close(b.done) })
	return m
}

// Vocabulary returns the loaded vocabulary, or nil before Ready.
func (b *Backend) Vocabulary() *encode.Vocabulary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.vocab
}

// Encode maps text onto the loaded vocabulary. Before Ready every
// position is padding.
func (b *Backend) Encode(text string) encode.Sequence {
	return encode.Encode(text, b.Vocabulary())
}

// EncodeTokens is Encode for already tokenized input.
func (b *Backend) EncodeTokens(tokens []string) encode.Sequence {
	return encode.EncodeTokens(tokens, b.Vocabulary())
}

type prediction struct {
	out *model.Tensor
	err error
}

// Score runs one inference and returns a positivity probability in [0,1].
// It fails with ErrModelUnavailable unless the backend is Ready and with
// ErrInferenceFailed when the model errors, panics, returns NaN or ctx
// expires first. An inference failure does not change the backend state.
// Tensors are released on every path; when ctx expires while the model is
// still running, the input and any late output are released once Predict
// returns.
func (b *Backend) Score(ctx context.Context, seq encode.Sequence) (float64, error) {
	b.mu.RLock()
	m := b.model
	b.mu.RUnlock()
	if b.State() != StateReady || m == nil {
		return 0, internalerr.ErrModelUnavailable
	}

	start := time.Now()
	defer func() { b.opts.Metrics.ObserveInference(time.Since(start)) }()

	in := model.FromSequence(seq)
	ch := make(chan prediction, 1)
	go func() {
		defer in.Release()
		defer func() {
			if r := recover(); r != nil {
				ch <- prediction{err: fmt.Errorf("model panic: %v", r)}
			}
		}()
		out, err := m.Predict(ctx, in)
		ch <- prediction{out: out, err: err}
	}()

	select {
	case p := <-ch:
		return readScore(p)
	case <-ctx.Done():
		go func() {
			if p := <-ch; p.out != nil {
				p.out.Release()
			}
		}()
		return 0, fmt.Errorf("%w: %w", internalerr.ErrInferenceFailed, ctx.Err())
	}
}

func readScore(p prediction) (float64, error) {
	if p.out != nil {
		defer p.out.Release()
	}
	if p.err != nil {
		return 0, fmt.Errorf("%w: %w", internalerr.ErrInferenceFailed, p.err)
	}
	if p.out == nil || len(p.out.Data()) == 0 {
		return 0, fmt.Errorf("%w: empty model output", internalerr.ErrInferenceFailed)
	}
	score := float64(p.out.Data()[0])
	if math.IsNaN(score) {
		return 0, fmt.Errorf("%w: model returned NaN", internalerr.ErrInferenceFailed)
	}
	return min(max(score, 0), 1), nil
}

// Close releases the model. The backend is Unavailable afterwards; a load
// still in flight discards what it fetched.
func (b *Backend) Close() error {
	if m := b.finish(internalerr.ErrModelUnavailable); m != nil {
		return m.Close()
	}
	return nil
}
