package stoplist

import (
	"sort"
	"strings"
	"sync"
)

// DefaultTerms are the grammatical particles excluded from keywords when
// no stoplist is configured.
var DefaultTerms = []string{"的", "了", "和", "在", "是"}

// Manager holds the stopword set used by keyword extraction.
// It is safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	stops map[string]struct{}
}

// NewManager creates a new stoplist manager
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]struct{}, len(initialStops))
	for _, s := range initialStops {
		if s = normalize(s); s != "" {
			stops[s] = struct{}{}
		}
	}
	return &Manager{stops: stops}
}

// Default returns a manager seeded with DefaultTerms.
func Default() *Manager {
	return NewManager(DefaultTerms)
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.stops[normalize(token)]
	return ok
}

// Add adds a token to the stoplist
func (m *Manager) Add(token string) {
	token = normalize(token)
	if token == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops[token] = struct{}{}
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stops, normalize(token))
}

// All returns all stopwords in sorted order
func (m *Manager) All() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

func normalize(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}
