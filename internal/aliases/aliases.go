// Package aliases maps tickers to the name variants used both to widen
// search recall and to detect mentions in article text.
package aliases

// Table maps a ticker to its known human-readable name variants. The ticker
// itself is always implied even when absent from the list.
type Table map[string][]string

// Names returns all known variants for a ticker, falling back to the ticker
// itself when the table has no entry.
func (t Table) Names(ticker string) []string {
	names := t[ticker]
	if len(names) == 0 {
		return []string{ticker}
	}
	return names
}

// Expand produces the search-query strings for a ticker: every name variant
// plus each variant combined with the topical suffixes. Pure function, no
// dedup needed because variants are distinct by construction.
func (t Table) Expand(ticker string, suffixes []string) []string {
	names := t.Names(ticker)
	queries := make([]string, 0, len(names)*(1+len(suffixes)))
	for _, name := range names {
		queries = append(queries, name)
		for _, suffix := range suffixes {
			queries = append(queries, name+" "+suffix)
		}
	}
	return queries
}
