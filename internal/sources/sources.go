// Package sources turns the per-outlet configuration into a registry of
// Source values. All outlet-specific knowledge (URL templates, selectors)
// lives in configuration; the code here is the one generic implementation.
package sources

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"news_spider/internal/config"
)

// Source is one configured news outlet.
type Source struct {
	Name string
	cfg  config.SourceConfig
}

// Registry holds all configured sources.
type Registry struct {
	sources map[string]*Source
}

func NewRegistry(cfgs map[string]config.SourceConfig) *Registry {
	r := &Registry{sources: make(map[string]*Source, len(cfgs))}
	for name, cfg := range cfgs {
		r.sources[name] = &Source{Name: name, cfg: cfg}
	}
	return r
}

// Get returns the source with the given name, or nil.
func (r *Registry) Get(name string) *Source {
	return r.sources[name]
}

// All returns the sources in stable name order.
func (r *Registry) All() []*Source {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Source, 0, len(names))
	for _, name := range names {
		out = append(out, r.sources[name])
	}
	return out
}

// Config exposes the source's configuration to extractors.
func (s *Source) Config() config.SourceConfig { return s.cfg }

// MaxPages is the per-query pagination limit for this outlet.
func (s *Source) MaxPages() int {
	if s.cfg.MaxPages <= 0 {
		return 30
	}
	return s.cfg.MaxPages
}

// Covers reports whether this outlet has usable coverage for the given year.
// Outlets with a min_year (e.g. ones whose search only returns recent news)
// are skipped for earlier periods.
func (s *Source) Covers(year int) bool {
	return s.cfg.MinYear == 0 || year >= s.cfg.MinYear
}

// SearchURL expands the outlet's search template for one query and page.
// from/to may be zero when the outlet's search has no date filter; the
// template then simply has no {date_from}/{date_to} placeholders.
func (s *Source) SearchURL(query string, page int, from, to time.Time) string {
	sep := s.cfg.QuerySep
	if sep == "" {
		sep = "+"
	}
	parts := strings.Fields(query)
	for i := range parts {
		parts[i] = url.QueryEscape(parts[i])
	}
	q := strings.Join(parts, sep)

	u := s.cfg.SearchURL
	u = strings.ReplaceAll(u, "{query}", q)
	u = strings.ReplaceAll(u, "{page}", strconv.Itoa(page))
	u = strings.ReplaceAll(u, "{date_from}", fmtDate(from))
	u = strings.ReplaceAll(u, "{date_to}", fmtDate(to))
	return u
}

// ExtractLinks pulls candidate article URLs out of a search-result document.
// Relative links are resolved against the outlet's base URL. Markup that no
// longer matches yields an empty slice, never an error: the collector treats
// that as an empty page.
func (s *Source) ExtractLinks(doc *goquery.Document) []string {
	if doc == nil {
		return nil
	}
	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		base = nil
	}

	var links []string
	seen := make(map[string]struct{})

	doc.Find(s.cfg.Links.Teaser).Each(func(_ int, sel *goquery.Selection) {
		anchor := sel
		if s.cfg.Links.Anchor != "" {
			anchor = sel.Find(s.cfg.Links.Anchor).First()
		}
		href, ok := anchor.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
			return
		}

		abs := resolve(base, href)
		if abs == "" {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})
	return links
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if base == nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
