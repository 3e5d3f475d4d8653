// Package extract pulls title, body and publish date out of article pages
// using the per-source selector fallback chains, with go-readability as the
// last-resort body extractor.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"news_spider/internal/config"
	"news_spider/internal/fetch"
	"news_spider/internal/models"
	"news_spider/internal/sources"
)

// Paragraphs shorter than this inside a content container are captions, ad
// labels or photo credits, not article text.
const minParagraphLen = 20

var (
	// ErrTooShort means the page loaded but its body never reached the
	// configured minimum length, even after retries.
	ErrTooShort = errors.New("article body below minimum length")
	// ErrUnknownSource means the candidate's source tag has no registry entry.
	ErrUnknownSource = errors.New("unknown source")
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// Extractor fetches article pages and extracts their fields. The whole
// fetch+extract is retried on retryable fetch errors and on too-short
// bodies; structural misses (no selector matched) are not retried.
type Extractor struct {
	client     Fetcher
	registry   *sources.Registry
	minBodyLen int
	maxRetries int
	retryDelay time.Duration
	log        *zap.SugaredLogger
}

func NewExtractor(client Fetcher, registry *sources.Registry, minBodyLen, maxRetries int, retryDelay time.Duration, log *zap.SugaredLogger) *Extractor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Extractor{
		client:     client,
		registry:   registry,
		minBodyLen: minBodyLen,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		log:        log,
	}
}

// Extract fetches the candidate URL and extracts title, body and date.
// Title, body and date are extracted independently: a missing date never
// blocks the body.
func (e *Extractor) Extract(ctx context.Context, cand models.ArticleCandidate) (*models.ExtractedArticle, error) {
	src := e.registry.Get(cand.Source)
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, cand.Source)
	}
	sel := src.Config().Content

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.retryDelay):
			}
		}

		page, err := e.client.Fetch(ctx, cand.URL)
		if err != nil {
			lastErr = err
			if !fetch.IsRetryable(err) {
				return nil, err
			}
			continue
		}

		article := &models.ExtractedArticle{
			Title:       firstText(page.Doc, sel.Title),
			Body:        e.extractBody(page, sel),
			PublishDate: extractDate(page.Doc, sel.Date),
			SourceURL:   cand.URL,
		}

		if len(article.Body) < e.minBodyLen {
			lastErr = fmt.Errorf("%w: %d chars from %s", ErrTooShort, len(article.Body), cand.URL)
			continue
		}
		if article.Title == "" {
			article.Title = truncate(article.Body, 50) + "..."
		}
		return article, nil
	}
	return nil, lastErr
}

// extractBody walks the body selector chain. Inside the first matching
// container it strips script/style/ad nodes and concatenates the paragraph
// nodes that look like real text; when the container has no paragraphs it
// falls back to the container's own lines, and when no selector matches at
// all, to readability over the whole page.
func (e *Extractor) extractBody(page *fetch.Page, sel config.ContentSelectors) string {
	paragraphSel := sel.Paragraph
	if paragraphSel == "" {
		paragraphSel = "p"
	}

	for _, s := range sel.Body {
		container := page.Doc.Find(s).First()
		if container.Length() == 0 {
			continue
		}
		container.Find("script, style, .ads, .banner, .box-tinlienquan").Remove()

		var parts []string
		container.Find(paragraphSel).Each(func(_ int, p *goquery.Selection) {
			text := strings.TrimSpace(p.Text())
			if len(text) > minParagraphLen {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}

		// Container matched but holds no paragraph nodes; take its text
		// line by line.
		for _, line := range strings.Split(container.Text(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				parts = append(parts, line)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}

	return e.readabilityBody(page)
}

func (e *Extractor) readabilityBody(page *fetch.Page) string {
	parsed, err := url.Parse(page.URL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(page.HTML), parsed)
	if err != nil {
		e.log.Debugw("readability fallback failed", "url", page.URL, "error", err)
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

// firstText returns the text of the first selector that matches a non-empty
// node.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, s := range selectors {
		if text := strings.TrimSpace(doc.Find(s).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// extractDate prefers a machine-readable datetime attribute when the matched
// node carries one.
func extractDate(doc *goquery.Document, selectors []string) string {
	for _, s := range selectors {
		node := doc.Find(s).First()
		if node.Length() == 0 {
			continue
		}
		if dt, ok := node.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			return strings.TrimSpace(dt)
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			return text
		}
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
