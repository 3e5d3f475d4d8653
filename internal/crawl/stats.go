package crawl

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Stats are the run counters. Workers mutate them through the mutex; they
// are read only for the run-end report (always printed, even on interrupt),
// which is the operator's signal that a source has gone dark.
type Stats struct {
	mu sync.Mutex

	LinksFound int
	Processed  int
	Accepted   int

	Rejected map[string]int // by reason
	ByTicker map[string]int // accepted per ticker
	ByPeriod map[string]int // accepted per period label
}

func NewStats() *Stats {
	return &Stats{
		Rejected: make(map[string]int),
		ByTicker: make(map[string]int),
		ByPeriod: make(map[string]int),
	}
}

func (s *Stats) AddLinks(n int) {
	s.mu.Lock()
	s.LinksFound += n
	s.mu.Unlock()
}

func (s *Stats) MarkProcessed() {
	s.mu.Lock()
	s.Processed++
	s.mu.Unlock()
}

func (s *Stats) MarkAccepted(ticker, period string) {
	s.mu.Lock()
	s.Accepted++
	s.ByTicker[ticker]++
	s.ByPeriod[period]++
	s.mu.Unlock()
}

func (s *Stats) MarkRejected(reason string) {
	s.mu.Lock()
	s.Rejected[reason]++
	s.mu.Unlock()
}

// Report prints the aggregate counters in a fixed order.
func (s *Stats) Report(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(w, "links found:        %d\n", s.LinksFound)
	fmt.Fprintf(w, "articles processed: %d\n", s.Processed)
	fmt.Fprintf(w, "articles accepted:  %d\n", s.Accepted)

	fmt.Fprintln(w, "\naccepted by ticker:")
	for _, k := range sortedKeys(s.ByTicker) {
		fmt.Fprintf(w, "  %-6s %5d\n", k, s.ByTicker[k])
	}
	fmt.Fprintln(w, "\naccepted by period:")
	for _, k := range sortedKeys(s.ByPeriod) {
		fmt.Fprintf(w, "  %-12s %5d\n", k, s.ByPeriod[k])
	}
	if len(s.Rejected) > 0 {
		fmt.Fprintln(w, "\nrejected by reason:")
		for _, k := range sortedKeys(s.Rejected) {
			fmt.Fprintf(w, "  %-18s %5d\n", k, s.Rejected[k])
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
