package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/subosito/gotenv"
	"go-simpler.org/env"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/moodlens/pkg/moodlens/internalerr"
	"github.com/cognicore/moodlens/pkg/moodlens/suggest"
)

// Journal storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverValkey = "valkey"
)

// Fallback policies.
const (
	FallbackRandom  = "random"
	FallbackLexicon = "lexicon"
)

// Config holds every setting of the engine and its journal. Values come
// from Default, then the YAML file, then the environment.
type Config struct {
	ModelURL      string `yaml:"model_url" env:"MOODLENS_MODEL_URL"`
	VocabularyURL string `yaml:"vocabulary_url" env:"MOODLENS_VOCABULARY_URL"`

	FetchTimeout     time.Duration `yaml:"fetch_timeout" env:"MOODLENS_FETCH_TIMEOUT"`
	FetchAttempts    int           `yaml:"fetch_attempts" env:"MOODLENS_FETCH_ATTEMPTS"`
	FetchBackoff     time.Duration `yaml:"fetch_backoff" env:"MOODLENS_FETCH_BACKOFF"`
	InferenceTimeout time.Duration `yaml:"inference_timeout" env:"MOODLENS_INFERENCE_TIMEOUT"`

	StoplistPath   string       `yaml:"stoplist_path" env:"MOODLENS_STOPLIST"`
	ExtraStopwords []string     `yaml:"extra_stopwords" env:"MOODLENS_EXTRA_STOPWORDS"`
	Suggestions    suggest.Sets `yaml:"suggestions"`
	Fallback       string       `yaml:"fallback" env:"MOODLENS_FALLBACK"`
	StripMarkup    bool         `yaml:"strip_markup" env:"MOODLENS_STRIP_MARKUP"`

	LogLevel  string `yaml:"log_level" env:"MOODLENS_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"MOODLENS_LOG_FORMAT"`

	JournalDriver  string `yaml:"journal_driver" env:"MOODLENS_JOURNAL_DRIVER"`
	JournalKey     string `yaml:"journal_key" env:"MOODLENS_JOURNAL_KEY"`
	SQLitePath     string `yaml:"sqlite_path" env:"MOODLENS_SQLITE_PATH"`
	ValkeyAddr     string `yaml:"valkey_addr" env:"MOODLENS_VALKEY_ADDR"`
	ValkeyPassword string `yaml:"valkey_password" env:"MOODLENS_VALKEY_PASSWORD"`
}

// Default returns the built-in settings. No model is configured, so
// analyses are degraded until ModelURL and VocabularyURL are set.
func Default() Config {
	return Config{
		FetchTimeout:     30 * time.Second,
		FetchAttempts:    3,
		FetchBackoff:     250 * time.Millisecond,
		InferenceTimeout: 2 * time.Second,
		Fallback:         FallbackRandom,
		LogLevel:         "info",
		LogFormat:        "text",
		JournalDriver:    DriverMemory,
		JournalKey:       "moodEntries",
		SQLitePath:       "moodlens.db",
	}
}

// Load builds a Config from defaults, the optional YAML file at path, the
// optional dotenv file and the process environment, in that order.
// Variables already in the environment win over the dotenv file.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", internalerr.ErrInvalidConfig, path, err)
		}
	}

	if envFile != "" {
		if err := gotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := env.Load(&cfg, nil); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %v", internalerr.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if (c.ModelURL == "") != (c.VocabularyURL == "") {
		return invalid("model_url and vocabulary_url must be set together")
	}
	if c.FetchTimeout <= 0 || c.InferenceTimeout <= 0 {
		return invalid("timeouts must be positive")
	}
	if c.FetchAttempts < 1 {
		return invalid("fetch_attempts must be at least 1, got %d", c.FetchAttempts)
	}
	if c.FetchBackoff < 0 {
		return invalid("fetch_backoff must not be negative")
	}
	switch c.Fallback {
	case FallbackRandom, FallbackLexicon:
	default:
		return invalid("unknown fallback %q", c.Fallback)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return invalid("unknown log_format %q", c.LogFormat)
	}
	switch c.JournalDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return invalid("sqlite_path is required for the sqlite driver")
		}
	case DriverValkey:
		if c.ValkeyAddr == "" {
			return invalid("valkey_addr is required for the valkey driver")
		}
	default:
		return invalid("unknown journal_driver %q", c.JournalDriver)
	}
	if c.JournalKey == "" {
		return invalid("journal_key must not be empty")
	}
	if c.hasSuggestions() {
		if err := c.Suggestions.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) hasSuggestions() bool {
	s := c.Suggestions
	return len(s.Negative) > 0 || len(s.Neutral) > 0 || len(s.Positive) > 0
}

// Stoplist represents the stopword list file
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}
