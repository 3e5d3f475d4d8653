// Package sentiment scores stored articles and writes the scores back with
// read-after-write verification. The scoring model itself is pluggable; the
// bundled lexicon analyzer is a lightweight stand-in for the hosted
// Vietnamese sentiment model.
package sentiment

import (
	"strings"

	"news_spider/internal/models"
)

// Analyzer produces the three class probabilities for a text.
type Analyzer interface {
	Analyze(text string) models.SentimentScores
}

// LexiconAnalyzer scores text by counting matches against positive and
// negative Vietnamese financial-news word lists. Empty text is fully
// neutral, matching the backfill's convention.
type LexiconAnalyzer struct {
	positive []string
	negative []string
}

func NewLexiconAnalyzer() *LexiconAnalyzer {
	return &LexiconAnalyzer{
		positive: []string{
			"tăng trưởng", "lãi", "lợi nhuận tăng", "khởi sắc", "tích cực",
			"vượt kế hoạch", "kỷ lục", "bứt phá", "hồi phục", "tăng mạnh",
		},
		negative: []string{
			"giảm", "lỗ", "nợ xấu", "tiêu cực", "sụt giảm", "lao dốc",
			"thua lỗ", "rủi ro", "bán tháo", "khó khăn",
		},
	}
}

func (a *LexiconAnalyzer) Analyze(text string) models.SentimentScores {
	if strings.TrimSpace(text) == "" {
		return models.SentimentScores{Neutral: 1}
	}

	lower := strings.ToLower(text)
	pos := countMatches(lower, a.positive)
	neg := countMatches(lower, a.negative)

	// One pseudo-count keeps the distribution away from 0/1 extremes a
	// couple of keyword hits do not justify.
	total := float64(pos + neg + 1)
	return models.SentimentScores{
		Positive: float64(pos) / total,
		Negative: float64(neg) / total,
		Neutral:  1 / total,
	}
}

func countMatches(text string, words []string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(text, w)
	}
	return n
}
