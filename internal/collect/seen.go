package collect

import (
	"net/url"
	"strings"
	"sync"
)

// SeenSet tracks normalized URLs already dispatched during a run. It never
// shrinks; scope (per ticker or whole run) is the orchestrator's choice.
type SeenSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{urls: make(map[string]struct{})}
}

// Add records the URL and reports whether it was new.
func (s *SeenSet) Add(rawURL string) bool {
	key := NormalizeURL(rawURL)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.urls[key]; ok {
		return false
	}
	s.urls[key] = struct{}{}
	return true
}

// Contains reports whether the URL was already added.
func (s *SeenSet) Contains(rawURL string) bool {
	key := NormalizeURL(rawURL)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.urls[key]
	return ok
}

// Len returns the number of distinct URLs seen so far.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

// NormalizeURL strips fragments, the www prefix and tracking query strings
// so the same article fetched through different teaser links dedups to one
// key.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Fragment = ""
	parsed.RawQuery = ""
	parsed.Host = strings.TrimPrefix(parsed.Host, "www.")
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	return parsed.String()
}
