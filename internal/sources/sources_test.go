package sources

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_spider/internal/config"
)

func testSource(t *testing.T, cfg config.SourceConfig) *Source {
	t.Helper()
	reg := NewRegistry(map[string]config.SourceConfig{"test": cfg})
	src := reg.Get("test")
	require.NotNil(t, src)
	return src
}

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestSearchURLExpansion(t *testing.T) {
	src := testSource(t, config.SourceConfig{
		SearchURL: "https://example.com/search?q={query}&from={date_from}&to={date_to}&page={page}",
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got := src.SearchURL("FPT lợi nhuận", 3, from, to)

	assert.Contains(t, got, "page=3")
	assert.Contains(t, got, "from=2024-01-01")
	assert.Contains(t, got, "to=2024-12-31")
	assert.Contains(t, got, "+", "spaces join with + by default")
	assert.NotContains(t, got, " ")
}

func TestSearchURLCustomSeparator(t *testing.T) {
	src := testSource(t, config.SourceConfig{
		SearchURL: "https://example.com/tim-kiem/{query}.htm?page={page}",
		QuerySep:  "-",
	})
	got := src.SearchURL("MB Bank", 1, time.Time{}, time.Time{})
	assert.Contains(t, got, "MB-Bank")
}

func TestExtractLinks(t *testing.T) {
	src := testSource(t, config.SourceConfig{
		BaseURL: "https://news.example.com",
		Links:   config.LinkSelectors{Teaser: "h3.title-news", Anchor: "a"},
	})

	doc := docFrom(t, `
		<div>
			<h3 class="title-news"><a href="/post-1.html">One</a></h3>
			<h3 class="title-news"><a href="https://other.example.com/post-2.html">Two</a></h3>
			<h3 class="title-news"><a href="#comments">skip</a></h3>
			<h3 class="title-news"><a href="/post-1.html">dup</a></h3>
			<h3 class="other"><a href="/not-a-teaser.html">skip</a></h3>
		</div>`)

	links := src.ExtractLinks(doc)
	assert.Equal(t, []string{
		"https://news.example.com/post-1.html",
		"https://other.example.com/post-2.html",
	}, links)
}

func TestExtractLinksAnchorlessTeaser(t *testing.T) {
	src := testSource(t, config.SourceConfig{
		BaseURL: "https://news.example.com",
		Links:   config.LinkSelectors{Teaser: "a.article-title"},
	})
	doc := docFrom(t, `<a class="article-title" href="/a.html">A</a>`)
	assert.Equal(t, []string{"https://news.example.com/a.html"}, src.ExtractLinks(doc))
}

func TestExtractLinksMissingMarkup(t *testing.T) {
	src := testSource(t, config.SourceConfig{
		BaseURL: "https://news.example.com",
		Links:   config.LinkSelectors{Teaser: "h3.title-news", Anchor: "a"},
	})
	doc := docFrom(t, `<div><p>site redesigned, selectors gone</p></div>`)
	assert.Empty(t, src.ExtractLinks(doc), "changed markup yields no links, not an error")
}

func TestCovers(t *testing.T) {
	recent := testSource(t, config.SourceConfig{SearchURL: "x", MinYear: 2024})
	assert.False(t, recent.Covers(2015))
	assert.True(t, recent.Covers(2024))

	always := testSource(t, config.SourceConfig{SearchURL: "x"})
	assert.True(t, always.Covers(1999))
}

func TestRegistryAllStableOrder(t *testing.T) {
	reg := NewRegistry(map[string]config.SourceConfig{
		"vnexpress": {}, "dantri": {}, "cafef": {},
	})
	var names []string
	for _, s := range reg.All() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"cafef", "dantri", "vnexpress"}, names)
}
