// Package journal keeps a user's mood entries. Each submission is analysed,
// prepended to the collection and the whole collection is persisted.
package journal

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"

	"github.com/cognicore/moodlens/pkg/moodlens"
	"github.com/cognicore/moodlens/pkg/moodlens/internalerr"
	"github.com/cognicore/moodlens/pkg/moodlens/trend"
)

// DefaultMood is used when a draft has no mood.
const DefaultMood = 3

// MoodTags are the tags an entry may carry.
var MoodTags = []string{
	"开心", "平静", "焦虑", "疲惫", "兴奋",
	"压力", "放松", "困惑", "充实", "孤独",
}

// Entry is one journal entry with its analysis.
type Entry struct {
	ID       string          `json:"id"`
	Date     time.Time       `json:"date"`
	Content  string          `json:"content"`
	Mood     int             `json:"mood"`
	Tags     []string        `json:"tags"`
	Analysis moodlens.Result `json:"analysis"`
}

// Draft is a submission before analysis.
type Draft struct {
	Content string
	Mood    int
	Tags    []string
}

// Store persists the whole entry collection under one key. Load returns
// an empty collection when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
	Close() error
}

// Analyzer scores a submission. *moodlens.Analyzer implements it.
type Analyzer interface {
	Analyze(ctx context.Context, text string, history []moodlens.HistoryEntry) (moodlens.Result, error)
}

// Options configures a Journal.
type Options struct {
	Store    Store
	Analyzer Analyzer
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Journal is safe for concurrent use. Entries are kept newest first.
type Journal struct {
	store    Store
	analyzer Analyzer
	clock    clockwork.Clock
	logger   *slog.Logger

	mu      sync.Mutex
	entries []Entry
	entropy *ulid.MonotonicEntropy
}

// Open loads the saved entries from the store.
func Open(ctx context.Context, opts Options) (*Journal, error) {
	if opts.Store == nil || opts.Analyzer == nil {
		return nil, fmt.Errorf("%w: journal needs a store and an analyzer", internalerr.ErrInvalidConfig)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	entries, err := opts.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load entries: %w", internalerr.ErrStoreUnavailable, err)
	}
	opts.Logger.Debug("[Journal] Loaded entries", slog.Int("count", len(entries)))

	return &Journal{
		store:    opts.Store,
		analyzer: opts.Analyzer,
		clock:    opts.Clock,
		logger:   opts.Logger,
		entries:  entries,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the store.
func (j *Journal) Close() error {
	return j.store.Close()
}

// Submit analyses a draft against the existing entries and saves it as the
// newest entry. Blank content is rejected.
func (j *Journal) Submit(ctx context.Context, d Draft) (Entry, error) {
	content := strings.TrimSpace(d.Content)
	if content == "" {
		return Entry{}, fmt.Errorf("%w: entry content is empty", internalerr.ErrInvalidInput)
	}
	mood := d.Mood
	if mood == 0 {
		mood = DefaultMood
	}
	if mood < 1 || mood > 5 {
		return Entry{}, fmt.Errorf("%w: mood %d outside 1..5", internalerr.ErrInvalidInput, mood)
	}
	tags, err := normalizeTags(d.Tags)
	if err != nil {
		return Entry{}, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	history := make([]moodlens.HistoryEntry, len(j.entries))
	for i, e := range j.entries {
		history[i] = moodlens.HistoryEntry{Date: e.Date.Format(time.RFC3339), ToneScore: e.Analysis.ToneScore}
	}

	analysis, err := j.analyzer.Analyze(ctx, content, history)
	if err != nil {
		return Entry{}, err
	}

	now := j.clock.Now().UTC()
	entry := Entry{
		ID:       ulid.MustNew(ulid.Timestamp(now), j.entropy).String(),
		Date:     now,
		Content:  content,
		Mood:     mood,
		Tags:     tags,
		Analysis: analysis,
	}

	updated := append([]Entry{entry}, j.entries...)
	if err := j.save(ctx, updated); err != nil {
		return Entry{}, err
	}

	j.logger.Info("[Journal] Entry added",
		slog.String("id", entry.ID),
		slog.Int("mood", mood),
		slog.String("outcome", string(analysis.Outcome)))
	return entry, nil
}

// Delete removes the entry with the given id.
func (j *Journal) Delete(ctx context.Context, id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	idx := slices.IndexFunc(j.entries, func(e Entry) bool { return e.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: entry %s", internalerr.ErrNotFound, id)
	}
	updated := slices.Delete(slices.Clone(j.entries), idx, idx+1)
	return j.save(ctx, updated)
}

func (j *Journal) save(ctx context.Context, entries []Entry) error {
	if err := j.store.Save(ctx, entries); err != nil {
		j.logger.Error("[Journal] Failed to save entries", slog.String("error", err.Error()))
		return fmt.Errorf("%w: save entries: %w", internalerr.ErrStoreUnavailable, err)
	}
	j.entries = entries
	return nil
}

// Entries returns a copy of all entries, newest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.entries)
}

// Trend projects the stored tone scores oldest first, for charting.
func (j *Journal) Trend() []trend.Point {
	j.mu.Lock()
	defer j.mu.Unlock()

	history := make([]trend.HistoryEntry, len(j.entries))
	for i, e := range j.entries {
		history[len(j.entries)-1-i] = trend.HistoryEntry{
			Date:      e.Date.Format(time.RFC3339),
			ToneScore: e.Analysis.ToneScore,
		}
	}
	return trend.Assemble(history)
}

func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		if !slices.Contains(MoodTags, tag) {
			return nil, fmt.Errorf("%w: unknown mood tag %q", internalerr.ErrInvalidInput, tag)
		}
		out = append(out, tag)
	}
	return out, nil
}
