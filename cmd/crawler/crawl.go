package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"news_spider/internal/collect"
	"news_spider/internal/config"
	"news_spider/internal/crawl"
	"news_spider/internal/extract"
	"news_spider/internal/fetch"
	"news_spider/internal/filter"
	"news_spider/internal/sink"
	"news_spider/internal/sources"
	"news_spider/internal/store"
)

type crawlFlags struct {
	start     string
	end       string
	date      string
	days      int
	lastWeek  bool
	lastMonth bool
	byDay     bool
	tickers   string
	output    string
	toStore   bool
	yes       bool
}

func newCrawlCmd() *cobra.Command {
	var f crawlFlags

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl news articles for the configured tickers and date range",
		Example: `  crawler crawl --start 2024-01-01 --end 2024-01-31 --tickers ACB,BID
  crawler crawl --start 2024-01-01 --days 7 --by-day --tickers VCB
  crawler crawl --date 2024-01-15 --output news.csv
  crawler crawl --last-week --to-store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(f)
		},
	}

	cmd.Flags().StringVar(&f.start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.date, "date", "", "crawl a single date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.days, "days", 0, "number of days from --start")
	cmd.Flags().BoolVar(&f.lastWeek, "last-week", false, "crawl the last 7 days")
	cmd.Flags().BoolVar(&f.lastMonth, "last-month", false, "crawl the last 30 days")
	cmd.Flags().BoolVar(&f.byDay, "by-day", false, "one crawl cell per day instead of per year")
	cmd.Flags().StringVar(&f.tickers, "tickers", "", "comma-separated tickers (default from config)")
	cmd.Flags().StringVar(&f.output, "output", "", "CSV output path (auto-generated when empty)")
	cmd.Flags().BoolVar(&f.toStore, "to-store", false, "write to the database instead of CSV")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "overwrite existing output without asking")

	return cmd
}

func runCrawl(f crawlFlags) error {
	cfg, log, err := loadEnv()
	if err != nil {
		return err
	}
	defer log.Sync()

	start, end, err := resolveRange(f)
	if err != nil {
		return err
	}

	tickers := cfg.Tickers
	if f.tickers != "" {
		tickers = splitTickers(f.tickers)
	}
	if len(tickers) == 0 {
		return errors.New("no tickers configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	writer, cleanup, err := buildWriter(ctx, cfg, f, tickers, start, end)
	if err != nil {
		return err
	}
	if writer == nil {
		// Operator declined the overwrite prompt.
		return nil
	}
	defer cleanup()

	client := fetch.NewClient(
		time.Duration(cfg.Logic.TimeoutSec)*time.Second,
		cfg.Logic.UserAgent,
		cfg.Logic.RespectRobots,
		log,
	)
	registry := sources.NewRegistry(cfg.Sources)

	periods := crawl.YearPeriods(start, end)
	if f.byDay || start.Equal(end) {
		periods = crawl.DayPeriods(start, end)
	}

	orch := &crawl.Orchestrator{
		Collector: collect.NewCollector(
			client, registry, cfg.Aliases,
			time.Duration(cfg.Logic.RequestDelayMS)*time.Millisecond,
			cfg.Logic.EmptyPageThreshold, log,
		),
		Extractor: extract.NewExtractor(
			client, registry,
			cfg.Logic.MinContentLen, cfg.Logic.MaxRetries,
			time.Duration(cfg.Logic.RetryDelaySec)*time.Second, log,
		),
		Filter: filter.Filter{
			Aliases:         cfg.Aliases,
			KeepUnparseable: cfg.Logic.KeepUnparseableDates,
			MinScore:        cfg.Logic.MinRelevanceScore,
		},
		Writer:      writer,
		Tickers:     tickers,
		Periods:     periods,
		Workers:     cfg.Logic.MaxWorkers,
		GlobalDedup: cfg.Logic.DedupScope == "global",
		Log:         log,
	}

	log.Infow("crawl starting",
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"tickers", tickers,
		"cells", len(periods)*len(tickers),
	)

	started := time.Now()
	stats := orch.Run(ctx)

	fmt.Println()
	stats.Report(os.Stdout)
	fmt.Printf("\nduration: %s\n", time.Since(started).Round(time.Second))
	return nil
}

// buildWriter picks the sink. A nil writer with nil error means the operator
// declined to overwrite the existing CSV output.
func buildWriter(ctx context.Context, cfg *config.Config, f crawlFlags, tickers []string, start, end time.Time) (*sink.BatchWriter, func(), error) {
	if f.toStore {
		st, err := store.New(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		w := sink.NewBatchWriter(st, cfg.Logic.BatchSize)
		return w, func() { w.Close() }, nil
	}

	path := f.output
	if path == "" {
		path = defaultOutputName(tickers, start, end)
	}

	overwrite := false
	if _, err := os.Stat(path); err == nil {
		if !f.yes && !confirmOverwrite(path) {
			fmt.Println("crawl cancelled")
			return nil, nil, nil
		}
		overwrite = true
	}

	cs, err := sink.OpenCSV(path, overwrite)
	if err != nil {
		return nil, nil, err
	}
	w := sink.NewBatchWriter(cs, cfg.Logic.BatchSize)
	return w, func() { w.Close() }, nil
}

func confirmOverwrite(path string) bool {
	fmt.Printf("file %s already exists, overwrite? (y/n): ", path)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

func resolveRange(f crawlFlags) (time.Time, time.Time, error) {
	const layout = "2006-01-02"
	today := time.Now().UTC().Truncate(24 * time.Hour)

	switch {
	case f.date != "":
		d, err := time.Parse(layout, f.date)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad --date: %w", err)
		}
		return d, d, nil
	case f.lastWeek:
		return today.AddDate(0, 0, -6), today, nil
	case f.lastMonth:
		return today.AddDate(0, 0, -29), today, nil
	case f.start != "":
		start, err := time.Parse(layout, f.start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad --start: %w", err)
		}
		switch {
		case f.end != "":
			end, err := time.Parse(layout, f.end)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("bad --end: %w", err)
			}
			if end.Before(start) {
				return time.Time{}, time.Time{}, errors.New("--end must not be before --start")
			}
			return start, end, nil
		case f.days > 0:
			return start, start.AddDate(0, 0, f.days-1), nil
		default:
			return time.Time{}, time.Time{}, errors.New("--start requires --end or --days")
		}
	default:
		return time.Time{}, time.Time{}, errors.New("specify a date range: --start/--end, --date, --last-week or --last-month")
	}
}

func splitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func defaultOutputName(tickers []string, start, end time.Time) string {
	stamp := start.Format("20060102")
	if !start.Equal(end) {
		stamp += "_to_" + end.Format("20060102")
	}
	return fmt.Sprintf("news_%s_%s.csv", stamp, strings.Join(tickers, "_"))
}
