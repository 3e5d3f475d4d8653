package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"news_spider/internal/sink"
)

// The batch writer targets the store directly in --to-store mode.
var _ sink.Sink = (*Store)(nil)

func TestQueryFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, Query{}.filter(), "zero query matches everything")

	assert.Equal(t, bson.M{"ticker": "FPT"}, Query{Ticker: "FPT"}.filter())

	got := Query{Ticker: "BID", Year: 2024}.filter()
	assert.Equal(t, bson.M{
		"ticker": "BID",
		"date":   bson.M{"$gte": "2024-01-01", "$lte": "2024-12-31"},
	}, got)

	assert.NotContains(t, Query{Limit: 10, Offset: 5}.filter(), "date",
		"paging fields never leak into the filter")
}
