package config

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cognicore/moodlens/pkg/moodlens"
	"github.com/cognicore/moodlens/pkg/moodlens/backend"
	"github.com/cognicore/moodlens/pkg/moodlens/degrade"
	"github.com/cognicore/moodlens/pkg/moodlens/metrics"
	"github.com/cognicore/moodlens/pkg/moodlens/retry"
	"github.com/cognicore/moodlens/pkg/moodlens/stoplist"
	"github.com/cognicore/moodlens/pkg/moodlens/suggest"
)

// Loader turns a Config into engine components
type Loader struct {
	Config  Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Components holds everything an Analyzer is built from
type Components struct {
	Stoplist    *stoplist.Manager
	Suggestions suggest.Sets
	Fallback    degrade.Policy
	Backend     *backend.Backend
}

// Load reads the referenced files and constructs the components
func (l *Loader) Load() (*Components, error) {
	cfg := l.Config
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	comp := &Components{}

	// Stoplist: built-in terms, then the file, then extras
	comp.Stoplist = stoplist.Default()
	if cfg.StoplistPath != "" {
		sl, err := LoadStoplist(cfg.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		for _, term := range sl.Terms {
			comp.Stoplist.Add(term)
		}
	}
	for _, term := range cfg.ExtraStopwords {
		comp.Stoplist.Add(term)
	}

	comp.Suggestions = suggest.DefaultSets()
	if cfg.hasSuggestions() {
		comp.Suggestions = cfg.Suggestions
	}

	switch cfg.Fallback {
	case FallbackLexicon:
		comp.Fallback = degrade.NewLexicon()
	default:
		comp.Fallback = degrade.NewRandom()
	}

	opts := backend.Options{
		ModelRef:      cfg.ModelURL,
		VocabularyRef: cfg.VocabularyURL,
		Logger:        logger,
		Metrics:       l.Metrics,
	}
	if cfg.ModelURL != "" {
		policy := retry.DefaultPolicy()
		policy.MaxAttempts = cfg.FetchAttempts
		policy.InitialBackoff = cfg.FetchBackoff
		opts.Source = backend.NewSchemeSource(&backend.HTTPSource{
			HTTPClient: &http.Client{Timeout: cfg.FetchTimeout},
			Policy:     policy,
			Logger:     logger,
		})
	}
	comp.Backend = backend.New(opts)

	return comp, nil
}

// Analyzer builds an uninitialized Analyzer from the components.
func (c *Components) Analyzer(cfg Config, logger *slog.Logger, m *metrics.Metrics) (*moodlens.Analyzer, error) {
	return moodlens.New(moodlens.Options{
		Backend:          c.Backend,
		Stoplist:         c.Stoplist,
		Suggestions:      c.Suggestions,
		Fallback:         c.Fallback,
		Logger:           logger,
		Metrics:          m,
		InferenceTimeout: cfg.InferenceTimeout,
		StripMarkup:      cfg.StripMarkup,
	})
}
