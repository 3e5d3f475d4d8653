package models

// ArticleCandidate is a discovered article URL together with the outlet that
// produced it. Candidates are ephemeral: once dispatched to a worker the URL
// lives on only in the seen-set.
type ArticleCandidate struct {
	Source string
	URL    string
}

// ExtractedArticle holds the fields pulled out of a single article page.
// PublishDate is the raw text from the page; parsing happens in the
// relevance filter.
type ExtractedArticle struct {
	Title       string
	Body        string
	PublishDate string
	SourceURL   string
}

// NewsRecord is the persisted shape of an accepted article. One article may
// fan out into several records, one per matched ticker, depending on the
// configured dedup scope.
type NewsRecord struct {
	Date    string `bson:"date"`
	Time    string `bson:"time"`
	Title   string `bson:"title"`
	Content string `bson:"content"`
	Ticker  string `bson:"ticker"`
	Source  string `bson:"source"`
}

// SentimentScores are the three class probabilities written back by the
// sentiment backfill.
type SentimentScores struct {
	Negative float64 `bson:"negative_score" json:"negative_score"`
	Positive float64 `bson:"positive_score" json:"positive_score"`
	Neutral  float64 `bson:"neutral_score" json:"neutral_score"`
}
