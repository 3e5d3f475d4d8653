package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"news_spider/internal/models"
	"news_spider/internal/store"
)

func TestLexiconAnalyzer(t *testing.T) {
	a := NewLexiconAnalyzer()

	s := a.Analyze("")
	assert.Equal(t, models.SentimentScores{Neutral: 1}, s)

	s = a.Analyze("Doanh nghiệp báo lãi kỷ lục, tăng trưởng tích cực")
	assert.Greater(t, s.Positive, s.Negative)
	assert.InDelta(t, 1.0, s.Positive+s.Negative+s.Neutral, 1e-9, "scores form a distribution")

	s = a.Analyze("Cổ phiếu lao dốc, nhà đầu tư bán tháo vì thua lỗ")
	assert.Greater(t, s.Negative, s.Positive)
}

// fakeStore is an in-memory ScoreStore whose update and read-back behavior
// is scriptable per row.
type fakeStore struct {
	rows []store.NewsRow

	// saved scores by id hex
	saved map[string]models.SentimentScores

	// failUpdates[id] = number of initial UpdateScores calls returning zero
	// matches before the write starts sticking
	failUpdates map[string]int
	// corruptReads[id] = number of initial GetScores calls returning skewed
	// scores before the read-back agrees
	corruptReads map[string]int

	updateCalls map[string]int
}

func newFakeStore(rows ...store.NewsRow) *fakeStore {
	return &fakeStore{
		rows:         rows,
		saved:        make(map[string]models.SentimentScores),
		failUpdates:  make(map[string]int),
		corruptReads: make(map[string]int),
		updateCalls:  make(map[string]int),
	}
}

func (s *fakeStore) Count(ctx context.Context, q store.Query) (int64, error) {
	return int64(len(s.rows)), nil
}

func (s *fakeStore) Find(ctx context.Context, q store.Query) ([]store.NewsRow, error) {
	start := q.Offset
	if start > int64(len(s.rows)) {
		start = int64(len(s.rows))
	}
	end := start + q.Limit
	if q.Limit <= 0 || end > int64(len(s.rows)) {
		end = int64(len(s.rows))
	}
	return s.rows[start:end], nil
}

func (s *fakeStore) UpdateScores(ctx context.Context, id primitive.ObjectID, scores models.SentimentScores) (int64, error) {
	key := id.Hex()
	s.updateCalls[key]++
	if s.failUpdates[key] > 0 {
		s.failUpdates[key]--
		return 0, nil
	}
	s.saved[key] = scores
	return 1, nil
}

func (s *fakeStore) GetScores(ctx context.Context, id primitive.ObjectID) (models.SentimentScores, error) {
	key := id.Hex()
	if s.corruptReads[key] > 0 {
		s.corruptReads[key]--
		return models.SentimentScores{Neutral: 0.999}, nil
	}
	saved, ok := s.saved[key]
	if !ok {
		return models.SentimentScores{}, errors.New("not found")
	}
	return saved, nil
}

func row(ticker, title, content string) store.NewsRow {
	return store.NewsRow{ID: primitive.NewObjectID(), Ticker: ticker, Title: title, Content: content}
}

func newRunner(s *fakeStore, errLog string) *Runner {
	return &Runner{
		Store:      s,
		Analyzer:   NewLexiconAnalyzer(),
		PageSize:   2,
		MaxRetries: 3,
		ErrLogPath: errLog,
		Log:        zap.NewNop().Sugar(),
	}
}

func TestRunUpdatesAllRows(t *testing.T) {
	s := newFakeStore(
		row("FPT", "tin 1", "lãi kỷ lục"),
		row("FPT", "tin 2", "thua lỗ nặng"),
		row("BID", "tin 3", "tín dụng tăng trưởng"),
	)
	stats, err := newRunner(s, "").Run(context.Background(), store.Query{})
	require.NoError(t, err)

	assert.Equal(t, Stats{Rows: 3, Updated: 3}, stats)
	assert.Len(t, s.saved, 3)
	for _, r := range s.rows {
		assert.Equal(t, 1, s.updateCalls[r.ID.Hex()])
	}
}

func TestRunRetriesZeroMatchWrite(t *testing.T) {
	r := row("FPT", "tin", "lãi")
	s := newFakeStore(r)
	s.failUpdates[r.ID.Hex()] = 2 // sticks on the third attempt

	stats, err := newRunner(s, "").Run(context.Background(), store.Query{})
	require.NoError(t, err)

	assert.Equal(t, Stats{Rows: 1, Updated: 1}, stats)
	assert.Equal(t, 3, s.updateCalls[r.ID.Hex()])
}

func TestRunRetriesVerificationMismatch(t *testing.T) {
	r := row("FPT", "tin", "lãi")
	s := newFakeStore(r)
	s.corruptReads[r.ID.Hex()] = 1 // first read-back disagrees

	stats, err := newRunner(s, "").Run(context.Background(), store.Query{})
	require.NoError(t, err)

	assert.Equal(t, Stats{Rows: 1, Updated: 1}, stats)
	assert.Equal(t, 2, s.updateCalls[r.ID.Hex()], "mismatch re-runs the whole write")
}

func TestRunWritesErrorLogForExhaustedRows(t *testing.T) {
	bad := row("FPT", "tin hỏng", "lãi")
	good := row("BID", "tin tốt", "tăng trưởng")
	s := newFakeStore(bad, good)
	s.failUpdates[bad.ID.Hex()] = 10 // never sticks

	errLog := filepath.Join(t.TempDir(), "failed_updates.json")
	stats, err := newRunner(s, errLog).Run(context.Background(), store.Query{})
	require.NoError(t, err)

	assert.Equal(t, Stats{Rows: 2, Updated: 1, Failed: 1}, stats)

	data, err := os.ReadFile(errLog)
	require.NoError(t, err)
	var failures []struct {
		ID     string                 `json:"id"`
		Ticker string                 `json:"ticker"`
		Title  string                 `json:"title"`
		Scores models.SentimentScores `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(data, &failures))
	require.Len(t, failures, 1)
	assert.Equal(t, bad.ID.Hex(), failures[0].ID)
	assert.Equal(t, "tin hỏng", failures[0].Title)
}

func TestRunNoErrorLogWhenAllSucceed(t *testing.T) {
	s := newFakeStore(row("FPT", "tin", "lãi"))
	errLog := filepath.Join(t.TempDir(), "failed_updates.json")

	_, err := newRunner(s, errLog).Run(context.Background(), store.Query{})
	require.NoError(t, err)

	_, statErr := os.Stat(errLog)
	assert.True(t, os.IsNotExist(statErr), "no artifact unless something failed")
}

func TestRunHonorsLimit(t *testing.T) {
	s := newFakeStore(
		row("FPT", "tin 1", "lãi"),
		row("FPT", "tin 2", "lãi"),
		row("FPT", "tin 3", "lãi"),
	)
	stats, err := newRunner(s, "").Run(context.Background(), store.Query{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rows)
}
