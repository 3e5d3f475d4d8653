package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Vietnamese article pages prefix dates with the day of week and often
// append a timezone note, e.g. "Thứ hai, 15/7/2024, 17:45 (GMT+7)".
var (
	reDayOfWeek  = regexp.MustCompile(`(?i)(Thứ\s+(hai|ba|tư|năm|sáu|bảy|\d+)|Chủ\s+nhật|CN),?\s*`)
	reGMT        = regexp.MustCompile(`\(GMT\+\d+\)`)
	reWhitespace = regexp.MustCompile(`\s+`)
	reDMY        = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
)

// Layouts tried in order against the cleaned date text. Vietnamese sites use
// day-first ordering throughout.
var dateLayouts = []string{
	"2/1/2006, 15:04",
	"2/1/2006 15:04",
	"2006-01-02 15:04:05",
	"2/1/2006",
	"2-1-2006",
	"2006-01-02",
	"15:04 2/1/2006",
	"15:04, 2/1/2006",
	"15:04 - 2/1/2006",
	"2/1/2006 - 15:04",
}

// ParseDate parses the raw publish-date text scraped from an article page.
// Returns the zero time and false when nothing usable can be recovered.
func ParseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	cleaned := reDayOfWeek.ReplaceAllString(raw, "")
	cleaned = reGMT.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(reWhitespace.ReplaceAllString(cleaned, " "))

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, true
		}
	}

	// Salvage a dd/mm/yyyy fragment buried in surrounding text.
	if m := reDMY.FindStringSubmatch(cleaned); m != nil {
		if t, err := time.Parse("2/1/2006", m[1]+"/"+m[2]+"/"+m[3]); err == nil {
			return t, true
		}
	}

	// Last resort for ISO-like strings with timezone suffixes. Strict mode
	// only: ParseAny guesses month-first on ambiguous input, which is wrong
	// for every site this crawler targets.
	if t, err := dateparse.ParseStrict(cleaned); err == nil {
		return t, true
	}

	return time.Time{}, false
}

// SplitDateTime renders a parsed timestamp into the record's separate date
// and time columns. Midnight is treated as "time unknown".
func SplitDateTime(t time.Time) (date, clock string) {
	date = t.Format("2006-01-02")
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return date, ""
	}
	return date, t.Format("15:04:05")
}
