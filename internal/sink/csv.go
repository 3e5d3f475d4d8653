package sink

import (
	"encoding/csv"
	"fmt"
	"os"

	"news_spider/internal/models"
)

var csvHeader = []string{"date", "time", "title", "content", "ticker", "source"}

// CSVSink appends records to a UTF-8 delimited file with a fixed column
// order. The header row is written exactly once, when the file is created.
type CSVSink struct {
	file *os.File
	w    *csv.Writer
}

// OpenCSV opens path for appending, creating it (with a header row) when it
// does not exist. When overwrite is true an existing file is truncated and
// gets a fresh header.
func OpenCSV(path string, overwrite bool) (*CSVSink, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if overwrite {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	info, statErr := os.Stat(path)
	needHeader := overwrite || os.IsNotExist(statErr) || (statErr == nil && info.Size() == 0)

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", path, err)
	}

	s := &CSVSink{file: f, w: csv.NewWriter(f)}
	if needHeader {
		if err := s.w.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		s.w.Flush()
		if err := s.w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *CSVSink) WriteBatch(records []models.NewsRecord) error {
	for _, r := range records {
		row := []string{r.Date, r.Time, r.Title, r.Content, r.Ticker, r.Source}
		if err := s.w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
