package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_spider/internal/models"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.csv")

	s, err := OpenCSV(path, false)
	require.NoError(t, err)
	require.NoError(t, s.WriteBatch([]models.NewsRecord{
		{Date: "2024-07-15", Time: "17:45:00", Title: "FPT báo lãi", Content: "nội dung", Ticker: "FPT", Source: "vnexpress:https://vnexpress.net/a.html"},
	}))
	require.NoError(t, s.Close())

	// Reopen in append mode: no second header.
	s, err = OpenCSV(path, false)
	require.NoError(t, err)
	require.NoError(t, s.WriteBatch([]models.NewsRecord{
		{Date: "2024-07-16", Title: "BIDV tăng vốn", Ticker: "BID", Source: "dantri:u"},
	}))
	require.NoError(t, s.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"date", "time", "title", "content", "ticker", "source"}, rows[0])
	assert.Equal(t, "FPT báo lãi", rows[1][2])
	assert.Equal(t, "", rows[2][1], "missing clock time stays an empty column")
	assert.Equal(t, "BID", rows[2][4])
}

func TestCSVSinkOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.csv")

	s, err := OpenCSV(path, false)
	require.NoError(t, err)
	require.NoError(t, s.WriteBatch([]models.NewsRecord{{Title: "cũ", Ticker: "ACB"}}))
	require.NoError(t, s.Close())

	s, err = OpenCSV(path, true)
	require.NoError(t, err)
	require.NoError(t, s.WriteBatch([]models.NewsRecord{{Title: "mới", Ticker: "ACB"}}))
	require.NoError(t, s.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 2, "truncation discards old rows and rewrites the header")
	assert.Equal(t, "mới", rows[1][2])
}

func TestCSVSinkQuotesEmbeddedCommasAndNewlines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.csv")

	s, err := OpenCSV(path, false)
	require.NoError(t, err)
	content := "dòng một,\ndòng hai \"trích dẫn\""
	require.NoError(t, s.WriteBatch([]models.NewsRecord{{Title: "tiêu đề, có phẩy", Content: content, Ticker: "VCB"}}))
	require.NoError(t, s.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "tiêu đề, có phẩy", rows[1][2])
	assert.Equal(t, content, rows[1][3])
}
