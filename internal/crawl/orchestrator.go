// Package crawl is the top-level control loop: it walks the
// (ticker, period) cells, collects links, fans article extraction and
// filtering out over a bounded worker pool and feeds accepted records to
// the batch writer.
package crawl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"news_spider/internal/collect"
	"news_spider/internal/filter"
	"news_spider/internal/models"
)

// LinkCollector, ArticleExtractor and RecordWriter are the orchestrator's
// views of the pipeline stages.
type LinkCollector interface {
	Collect(ctx context.Context, ticker string, window filter.Window, seen *collect.SeenSet) []models.ArticleCandidate
}

type ArticleExtractor interface {
	Extract(ctx context.Context, cand models.ArticleCandidate) (*models.ExtractedArticle, error)
}

type RecordWriter interface {
	Enqueue(models.NewsRecord) error
	Flush() error
}

// Period is the time axis of one crawl cell.
type Period struct {
	Label  string
	Window filter.Window
}

// YearPeriods splits [start, end] into calendar-year windows, the first and
// last clipped to the range.
func YearPeriods(start, end time.Time) []Period {
	var periods []Period
	for year := start.Year(); year <= end.Year(); year++ {
		from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
		if from.Before(start) {
			from = start
		}
		if to.After(end) {
			to = end
		}
		periods = append(periods, Period{
			Label:  fmt.Sprintf("%d", year),
			Window: filter.Window{Start: from, End: to},
		})
	}
	return periods
}

// DayPeriods yields one cell per day, the granularity the inference crawl
// uses.
func DayPeriods(start, end time.Time) []Period {
	var periods []Period
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		periods = append(periods, Period{
			Label:  day.Format("2006-01-02"),
			Window: filter.Window{Start: day, End: day},
		})
	}
	return periods
}

// Orchestrator owns all shared crawl state (seen-set, stats) and hands it
// into worker tasks by reference; workers serialize mutation through the
// structures' own locks.
type Orchestrator struct {
	Collector LinkCollector
	Extractor ArticleExtractor
	Filter    filter.Filter // window is set per cell
	Writer    RecordWriter

	Tickers     []string
	Periods     []Period
	Workers     int
	GlobalDedup bool
	Log         *zap.SugaredLogger
}

// Run processes every cell and returns the aggregate stats. The writer is
// flushed unconditionally before returning, so an interrupt (cancelled
// context) never loses accepted records that are sitting in the buffer.
func (o *Orchestrator) Run(ctx context.Context) *Stats {
	stats := NewStats()
	defer func() {
		if err := o.Writer.Flush(); err != nil {
			o.Log.Errorw("final flush failed", "error", err)
		}
	}()

	globalSeen := collect.NewSeenSet()

	for _, period := range o.Periods {
		for _, ticker := range o.Tickers {
			if ctx.Err() != nil {
				o.Log.Warnw("crawl interrupted", "period", period.Label, "ticker", ticker)
				return stats
			}
			o.runCell(ctx, ticker, period, globalSeen, stats)
		}
	}
	return stats
}

// runCell walks one cell through its states: collect links, then process
// articles. A cell with zero links is logged and skipped, not retried;
// consistently empty periods mean no coverage, not a transient fault.
func (o *Orchestrator) runCell(ctx context.Context, ticker string, period Period, globalSeen *collect.SeenSet, stats *Stats) {
	log := o.Log.With("ticker", ticker, "period", period.Label)

	seen := globalSeen
	if !o.GlobalDedup {
		seen = collect.NewSeenSet()
	}

	log.Infow("collecting links")
	candidates := o.Collector.Collect(ctx, ticker, period.Window, seen)
	stats.AddLinks(len(candidates))
	if len(candidates) == 0 {
		log.Infow("cell done", "links", 0, "accepted", 0)
		return
	}

	log.Infow("processing articles", "links", len(candidates))

	cellFilter := o.Filter
	cellFilter.Window = period.Window

	workers := o.Workers
	if workers < 1 {
		workers = 3
	}

	jobs := make(chan models.ArticleCandidate)
	var wg sync.WaitGroup
	accepted := 0
	var acceptedMu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range jobs {
				if o.processArticle(ctx, cand, ticker, period.Label, &cellFilter, stats) {
					acceptedMu.Lock()
					accepted++
					acceptedMu.Unlock()
				}
			}
		}()
	}

dispatch:
	for _, cand := range candidates {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- cand:
		}
	}
	close(jobs)
	wg.Wait()

	log.Infow("cell done", "links", len(candidates), "accepted", accepted)
}

// processArticle is one worker task. Failures are logged and swallowed;
// they never abort sibling tasks or the cell.
func (o *Orchestrator) processArticle(ctx context.Context, cand models.ArticleCandidate, ticker, period string, f *filter.Filter, stats *Stats) bool {
	stats.MarkProcessed()

	article, err := o.Extractor.Extract(ctx, cand)
	if err != nil {
		o.Log.Debugw("article dropped", "url", cand.URL, "error", err)
		stats.MarkRejected("extract-failed")
		return false
	}

	verdict := f.Evaluate(article, ticker)
	if !verdict.OK {
		stats.MarkRejected(verdict.Reason)
		return false
	}

	rec := models.NewsRecord{
		Date:    verdict.Date,
		Time:    verdict.Time,
		Title:   article.Title,
		Content: article.Body,
		Ticker:  ticker,
		Source:  cand.Source + ":" + cand.URL,
	}
	if err := o.Writer.Enqueue(rec); err != nil {
		o.Log.Errorw("enqueue failed", "url", cand.URL, "error", err)
		return false
	}
	stats.MarkAccepted(ticker, period)
	return true
}
