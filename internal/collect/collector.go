// Package collect drives the paginated search endpoints of every configured
// source for one (ticker, window) cell and yields deduplicated article
// candidates.
package collect

import (
	"context"
	"time"

	"go.uber.org/zap"

	"news_spider/internal/aliases"
	"news_spider/internal/fetch"
	"news_spider/internal/filter"
	"news_spider/internal/models"
	"news_spider/internal/sources"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// Collector pages through search results query by query. Pagination is
// inherently sequential (each page's emptiness feeds the stop heuristic), so
// collection runs single-threaded per cell.
type Collector struct {
	client         Fetcher
	registry       *sources.Registry
	aliases        aliases.Table
	delay          time.Duration
	emptyThreshold int
	log            *zap.SugaredLogger
}

func NewCollector(client Fetcher, registry *sources.Registry, table aliases.Table, delay time.Duration, emptyThreshold int, log *zap.SugaredLogger) *Collector {
	if emptyThreshold < 1 {
		emptyThreshold = 3
	}
	return &Collector{
		client:         client,
		registry:       registry,
		aliases:        table,
		delay:          delay,
		emptyThreshold: emptyThreshold,
		log:            log,
	}
}

// Collect gathers candidate links for one ticker across all sources. URLs
// already in seen are dropped and do not count as "new" for the
// consecutive-empty-pages stop heuristic. A fetch failure counts as an empty
// page but never aborts the query.
func (c *Collector) Collect(ctx context.Context, ticker string, window filter.Window, seen *SeenSet) []models.ArticleCandidate {
	var candidates []models.ArticleCandidate

	for _, src := range c.registry.All() {
		if !window.End.IsZero() && !src.Covers(window.End.Year()) {
			c.log.Debugw("source skipped for period", "source", src.Name, "ticker", ticker)
			continue
		}

		found := 0
		for _, query := range c.aliases.Expand(ticker, src.Config().QuerySuffixes) {
			if ctx.Err() != nil {
				return candidates
			}
			fresh := c.collectQuery(ctx, src, query, window, seen)
			candidates = append(candidates, fresh...)
			found += len(fresh)
		}
		c.log.Infow("source collected", "source", src.Name, "ticker", ticker, "links", found)
	}
	return candidates
}

func (c *Collector) collectQuery(ctx context.Context, src *sources.Source, query string, window filter.Window, seen *SeenSet) []models.ArticleCandidate {
	var out []models.ArticleCandidate

	consecutiveEmpty := 0
	for page := 1; page <= src.MaxPages(); page++ {
		if consecutiveEmpty >= c.emptyThreshold {
			break
		}
		if ctx.Err() != nil {
			return out
		}

		searchURL := src.SearchURL(query, page, window.Start, window.End)
		fetched, err := c.client.Fetch(ctx, searchURL)
		if err != nil {
			c.log.Debugw("search page failed", "source", src.Name, "page", page, "error", err)
			consecutiveEmpty++
			c.sleep(ctx)
			continue
		}

		fresh := 0
		for _, link := range src.ExtractLinks(fetched.Doc) {
			if seen.Add(link) {
				out = append(out, models.ArticleCandidate{Source: src.Name, URL: link})
				fresh++
			}
		}

		if fresh > 0 {
			consecutiveEmpty = 0
		} else {
			consecutiveEmpty++
		}

		// The sites rate-limit silently (200 with an empty result list),
		// so the inter-page delay is the only backoff we have.
		c.sleep(ctx)
	}
	return out
}

func (c *Collector) sleep(ctx context.Context) {
	if c.delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.delay):
	}
}
