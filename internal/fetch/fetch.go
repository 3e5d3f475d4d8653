// Package fetch wraps HTTP retrieval of pages with the client identity,
// timeout and status handling the target news sites require. It returns
// typed errors so callers can tell a retryable network fault from a page
// that will never load.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const maxRedirects = 15

// Error is a failed fetch, classified for retry decisions. Retry policy
// itself lives in the caller.
type Error struct {
	URL       string
	Status    int
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a fetch failure worth retrying:
// timeouts, connection errors, 5xx and 429.
func IsRetryable(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Retryable
}

// Page is a successfully fetched and parsed document. HTML keeps the decoded
// markup for extractors that need the raw text (readability fallback).
type Page struct {
	URL  string
	Doc  *goquery.Document
	HTML string
}

// Client issues GETs with a browser-like User-Agent. The default identity of
// net/http gets empty bodies or 403s from several of the target sites.
type Client struct {
	http          *http.Client
	userAgent     string
	respectRobots bool
	log           *zap.SugaredLogger

	mu     sync.Mutex
	robots map[string]*robotstxt.Group // keyed by host
}

func NewClient(timeout time.Duration, userAgent string, respectRobots bool, log *zap.SugaredLogger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent:     userAgent,
		respectRobots: respectRobots,
		log:           log,
		robots:        make(map[string]*robotstxt.Group),
	}
}

// Fetch retrieves rawURL and parses it into a goquery document. Non-200
// statuses, network faults and robots denials all come back as *Error.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if c.respectRobots && !c.allowed(rawURL) {
		return nil, &Error{URL: rawURL, Err: errors.New("disallowed by robots.txt"), Retryable: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err, Retryable: false}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", "https://www.google.com/")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err, Retryable: isTransient(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, &Error{URL: rawURL, Status: resp.StatusCode, Retryable: retryable}
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = resp.Body
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err, Retryable: true}
	}

	html := string(body)
	if looksLikeCaptcha(html) {
		return nil, &Error{URL: rawURL, Status: resp.StatusCode, Err: errors.New("captcha page"), Retryable: false}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err, Retryable: false}
	}
	return &Page{URL: rawURL, Doc: doc, HTML: html}, nil
}

func isTransient(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Connection resets and refused connections surface as *url.Error
	// wrapping an *net.OpError.
	var ue *url.Error
	if errors.As(err, &ue) {
		var oe *net.OpError
		return errors.As(ue.Err, &oe) || ue.Timeout()
	}
	return false
}

func looksLikeCaptcha(html string) bool {
	lower := strings.ToLower(html)
	return strings.Contains(lower, "captcha") || strings.Contains(lower, "security check")
}

// allowed checks the host's robots.txt, fetching and caching the group on
// first use. Any failure to load robots.txt is treated as allow.
func (c *Client) allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}

	c.mu.Lock()
	group, ok := c.robots[u.Host]
	c.mu.Unlock()
	if !ok {
		group = c.loadRobots(u)
		c.mu.Lock()
		c.robots[u.Host] = group
		c.mu.Unlock()
	}
	if group == nil {
		return true
	}
	return group.Test(u.Path)
}

func (c *Client) loadRobots(u *url.URL) *robotstxt.Group {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequest(http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	// Same identity as the page fetches; sites that 403 the default Go
	// client would otherwise degrade this to allow-all.
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debugw("robots.txt unavailable", "host", u.Host, "error", err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		c.log.Debugw("robots.txt unparseable", "host", u.Host, "error", err)
		return nil
	}
	return data.FindGroup(c.userAgent)
}
