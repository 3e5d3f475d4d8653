// Package filter decides whether an extracted article belongs in the corpus
// for a given ticker: name mention, publish-date window and, optionally, a
// financial keyword score.
package filter

import (
	"regexp"
	"strings"
	"time"

	"news_spider/internal/aliases"
	"news_spider/internal/extract"
	"news_spider/internal/models"
)

// Window is an inclusive date range. The zero Window matches everything.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the window, boundaries included.
// Only the calendar date matters, not the clock time: the date is taken in
// t's own location, so a "2024-01-01T06:30:00+07:00" publish stamp still
// counts as January 1st.
func (w Window) Contains(t time.Time) bool {
	day := dateOnly(t)
	if !w.Start.IsZero() && day.Before(dateOnly(w.Start)) {
		return false
	}
	if !w.End.IsZero() && day.After(dateOnly(w.End)) {
		return false
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Rejection reasons, surfaced in stats and debug logs.
const (
	ReasonNoMention   = "no-mention"
	ReasonBadDate     = "unparseable-date"
	ReasonOutOfWindow = "out-of-window"
	ReasonLowScore    = "low-score"
)

// Verdict is the filter's decision for one (article, ticker) pair. Date and
// Time are filled from the parsed publish date when available.
type Verdict struct {
	OK     bool
	Reason string
	Date   string
	Time   string
}

// Filter evaluates articles. MinScore zero disables the topical check,
// matching the plain crawl variants; the financially-tuned variant sets it
// to 2.
type Filter struct {
	Aliases         aliases.Table
	Window          Window
	KeepUnparseable bool
	MinScore        int
}

// Evaluate runs the three checks in order: entity mention, date validity,
// topical score. All must pass.
func (f *Filter) Evaluate(a *models.ExtractedArticle, ticker string) Verdict {
	text := a.Title + " " + a.Body

	if !f.Mentions(text, ticker) {
		return Verdict{Reason: ReasonNoMention}
	}

	var date, clock string
	parsed, ok := extract.ParseDate(a.PublishDate)
	switch {
	case ok:
		if !f.Window.Contains(parsed) {
			return Verdict{Reason: ReasonOutOfWindow}
		}
		date, clock = extract.SplitDateTime(parsed)
	case f.KeepUnparseable:
		// Policy flag: some runs keep undated articles, others drop them.
	default:
		return Verdict{Reason: ReasonBadDate}
	}

	if f.MinScore > 0 && f.Score(text, ticker) < f.MinScore {
		return Verdict{Reason: ReasonLowScore}
	}

	return Verdict{OK: true, Date: date, Time: clock}
}

// Mentions reports whether any of the ticker's name variants appears in the
// text. Short all-caps tickers only match with word boundaries ("BID" must
// not fire inside an unrelated word); longer names match as plain
// substrings.
func (f *Filter) Mentions(text, ticker string) bool {
	upper := strings.ToUpper(text)
	for _, name := range f.Aliases.Names(ticker) {
		name = strings.ToUpper(name)
		if len([]rune(name)) <= 4 {
			if mentionsBounded(upper, name) {
				return true
			}
		} else if strings.Contains(upper, name) {
			return true
		}
	}
	return false
}

func mentionsBounded(text, name string) bool {
	patterns := []string{
		" " + name + " ",
		"(" + name + ")",
		name + ",",
		name + ".",
	}
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return strings.HasPrefix(text, name+" ") || strings.HasSuffix(text, " "+name)
}

// Common financial vocabulary, weight 1 per match.
var financialKeywords = []string{
	"chứng khoán", "cổ phiếu", "vn-index", "lợi nhuận", "doanh thu",
	"báo cáo tài chính", "cổ tức", "lãi suất", "trái phiếu", "nhà đầu tư",
	"thị trường", "kinh doanh", "tăng trưởng", "vốn hóa", "niêm yết",
}

// Banking-sector vocabulary, weight 2 per match for bank tickers.
var bankingKeywords = []string{
	"ngân hàng", "tín dụng", "huy động vốn", "nợ xấu", "cho vay",
	"tiền gửi", "ngân hàng nhà nước", "lãi thuần",
}

var bankTickers = map[string]bool{
	"ACB": true, "BID": true, "VCB": true, "MBB": true,
	"CTG": true, "TCB": true, "STB": true, "VPB": true,
}

// Large currency amounts ("1.234 tỷ đồng") signal a financial report rather
// than a passing mention.
var reCurrency = regexp.MustCompile(`\d[\d.,]*\s*(nghìn\s+)?(tỷ|triệu)\s+đồng`)

// Score is the weighted keyword-match count used by the topical filter:
// common financial terms weigh 1, sector terms 2, a large-currency amount
// adds a bonus point, and the total is halved when the ticker's own name is
// missing from the text.
func (f *Filter) Score(text, ticker string) int {
	lower := strings.ToLower(text)

	score := 0
	for _, kw := range financialKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}
	if bankTickers[ticker] {
		for _, kw := range bankingKeywords {
			if strings.Contains(lower, kw) {
				score += 2
			}
		}
	}
	if reCurrency.MatchString(lower) {
		score++
	}
	if !f.Mentions(text, ticker) {
		score /= 2
	}
	return score
}
