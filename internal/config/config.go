package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// LinkSelectors describes how to find article links on a search-result page:
// a selector for the repeating teaser node and a sub-selector for its anchor.
// Anchor may be empty when Teaser already selects <a> elements.
type LinkSelectors struct {
	Teaser string `yaml:"teaser"`
	Anchor string `yaml:"anchor"`
}

// ContentSelectors are prioritized selector lists for the article page.
// The first selector yielding a non-empty result wins, independently per
// field. Paragraph is applied inside the matched body container.
type ContentSelectors struct {
	Title     []string `yaml:"title"`
	Body      []string `yaml:"body"`
	Date      []string `yaml:"date"`
	Paragraph string   `yaml:"paragraph"`
}

// SourceConfig is the declarative description of one news outlet. SearchURL
// is a template with {query}, {page}, {date_from} and {date_to} placeholders.
type SourceConfig struct {
	BaseURL       string           `yaml:"base_url"`
	SearchURL     string           `yaml:"search_url"`
	QuerySep      string           `yaml:"query_sep"`
	QuerySuffixes []string         `yaml:"query_suffixes"`
	MaxPages      int              `yaml:"max_pages"`
	MinYear       int              `yaml:"min_year"`
	Links         LinkSelectors    `yaml:"links"`
	Content       ContentSelectors `yaml:"content"`
}

// LogicConfig holds crawl behaviour knobs shared by all sources.
type LogicConfig struct {
	TimeoutSec           int    `yaml:"timeout_sec"`
	MaxRetries           int    `yaml:"max_retries"`
	RetryDelaySec        int    `yaml:"retry_delay_sec"`
	RequestDelayMS       int    `yaml:"request_delay_ms"`
	EmptyPageThreshold   int    `yaml:"empty_page_threshold"`
	MaxWorkers           int    `yaml:"max_workers"`
	BatchSize            int    `yaml:"batch_size"`
	MinContentLen        int    `yaml:"min_content_len"`
	MinRelevanceScore    int    `yaml:"min_relevance_score"`
	DedupScope           string `yaml:"dedup_scope"` // "ticker" or "global"
	KeepUnparseableDates bool   `yaml:"keep_unparseable_dates"`
	RespectRobots        bool   `yaml:"respect_robots"`
	UserAgent            string `yaml:"user_agent"`
}

// DBConfig is the connection info for the news store.
type DBConfig struct {
	URI         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Collections struct {
		News string `yaml:"news"`
	} `yaml:"collections"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config is the top-level configuration. Sources and Aliases have built-in
// defaults covering the outlets and tickers the crawler was written for; a
// config file only needs to override what differs.
type Config struct {
	Logging LoggingConfig           `yaml:"logging"`
	Logic   LogicConfig             `yaml:"logic"`
	DB      DBConfig                `yaml:"db"`
	Tickers []string                `yaml:"tickers"`
	Aliases map[string][]string     `yaml:"aliases"`
	Sources map[string]SourceConfig `yaml:"sources"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Default returns the configuration matching the crawler's original targets:
// four Vietnamese outlets and the five tracked bank/tech tickers.
func Default() *Config {
	cfg := &Config{
		Logging: LoggingConfig{Level: "info"},
		Logic: LogicConfig{
			TimeoutSec:         10,
			MaxRetries:         3,
			RetryDelaySec:      2,
			RequestDelayMS:     200,
			EmptyPageThreshold: 3,
			MaxWorkers:         5,
			BatchSize:          100,
			MinContentLen:      50,
			DedupScope:         "ticker",
			UserAgent:          defaultUserAgent,
		},
		Tickers: []string{"ACB", "BID", "VCB", "MBB", "FPT"},
		Aliases: map[string][]string{
			"ACB": {"ACB", "Á Châu", "Asia Commercial Bank", "ngân hàng ACB", "NH ACB"},
			"BID": {"BID", "BIDV", "Đầu tư và Phát triển", "ngân hàng BIDV", "NH BIDV"},
			"VCB": {"VCB", "Vietcombank", "ngân hàng Vietcombank", "Ngoại thương", "NH Vietcombank"},
			"MBB": {"MBB", "MB Bank", "MB", "ngân hàng MB", "Quân Đội", "NH Quân Đội"},
			"FPT": {"FPT", "FPT Corporation", "Tập đoàn FPT", "cổ phiếu FPT", "Công ty FPT"},
		},
		Sources: map[string]SourceConfig{
			"vnexpress": {
				BaseURL:   "https://vnexpress.net",
				SearchURL: "https://timkiem.vnexpress.net/?q={query}&date_from={date_from}&date_to={date_to}&media_type=all&page={page}",
				QuerySuffixes: []string{
					"lợi nhuận", "cổ phiếu", "kinh doanh", "tăng trưởng",
				},
				MaxPages: 50,
				Links:    LinkSelectors{Teaser: "h3.title-news", Anchor: "a"},
				Content: ContentSelectors{
					Title:     []string{"h1.title-detail"},
					Body:      []string{"article.fck_detail"},
					Date:      []string{"span.date"},
					Paragraph: "p.Normal",
				},
			},
			"dantri": {
				BaseURL:       "https://dantri.com.vn",
				SearchURL:     "https://dantri.com.vn/tim-kiem.htm?q={query}&page={page}",
				QuerySuffixes: []string{"lợi nhuận", "kinh doanh"},
				MaxPages:      50,
				Links:         LinkSelectors{Teaser: "h3.article-title a, h4.article-title a"},
				Content: ContentSelectors{
					Title: []string{"h1.title-page", "h1.article-title", "h1.dt-news__title"},
					Body:  []string{"div.singular-content", "div.article-content", "div.dt-news__content"},
					Date:  []string{"time.author-time", "span.author-time", "time"},
				},
			},
			"thanhnien": {
				BaseURL:   "https://thanhnien.vn",
				SearchURL: "https://thanhnien.vn/tim-kiem/?keywords={query}&page={page}",
				MaxPages:  30,
				Links:     LinkSelectors{Teaser: "h2.title-news a, h3.title-news a"},
				Content: ContentSelectors{
					Title: []string{"h1.detail-title", "h1.title-detail"},
					Body:  []string{"div.detail-content", "div#contentbody"},
					Date:  []string{"div.detail-time", "time"},
				},
			},
			"cafef": {
				BaseURL:   "https://cafef.vn",
				SearchURL: "https://cafef.vn/tim-kiem.chn?keywords={query}&page={page}",
				MaxPages:  10,
				MinYear:   2024,
				Links:     LinkSelectors{Teaser: "div.item h3", Anchor: "a"},
				Content: ContentSelectors{
					Title: []string{".title-detail", "h1.title", "h1"},
					Body:  []string{".detail-content", ".main-content", "#mainContent"},
					Date:  []string{".date", "time", "span.time"},
				},
			},
		},
	}
	cfg.DB.URI = "mongodb://localhost:27017"
	cfg.DB.Database = "stock_news"
	cfg.DB.Collections.News = "news_data"
	return cfg
}

// Load reads a YAML config file on top of the defaults. An empty path
// returns the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Logic.DedupScope != "ticker" && c.Logic.DedupScope != "global" {
		return fmt.Errorf("config: dedup_scope must be \"ticker\" or \"global\", got %q", c.Logic.DedupScope)
	}
	if c.Logic.MaxWorkers < 1 {
		return fmt.Errorf("config: max_workers must be positive")
	}
	if c.Logic.BatchSize < 1 {
		return fmt.Errorf("config: batch_size must be positive")
	}
	for name, src := range c.Sources {
		if src.SearchURL == "" {
			return fmt.Errorf("config: source %s has no search_url", name)
		}
	}
	return nil
}
