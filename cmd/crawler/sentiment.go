package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"news_spider/internal/sentiment"
	"news_spider/internal/store"
)

func newSentimentCmd() *cobra.Command {
	var (
		ticker   string
		limit    int64
		offset   int64
		pageSize int64
		errLog   string
		noVerify bool
		maxRetry int
	)

	cmd := &cobra.Command{
		Use:   "sentiment",
		Short: "Score stored articles and write the sentiment columns back",
		Long: `Reads stored news rows page by page, scores each content and updates the
negative/positive/neutral columns. Every update is read back and verified;
rows that cannot be verified end up in a JSON error log for a later pass.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := store.New(ctx, cfg.DB)
			if err != nil {
				return err
			}
			defer st.Close()

			if errLog == "" {
				errLog = fmt.Sprintf("failed_updates_%s.json", time.Now().Format("20060102_150405"))
			}
			if noVerify {
				maxRetry = 1
			}

			runner := &sentiment.Runner{
				Store:      st,
				Analyzer:   sentiment.NewLexiconAnalyzer(),
				PageSize:   pageSize,
				MaxRetries: maxRetry,
				ErrLogPath: errLog,
				Log:        log,
			}

			stats, err := runner.Run(ctx, store.Query{Ticker: ticker, Limit: limit, Offset: offset})
			if err != nil {
				return err
			}

			fmt.Printf("rows: %d  updated: %d  failed: %d\n", stats.Rows, stats.Updated, stats.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "only rows for this ticker")
	cmd.Flags().Int64Var(&limit, "limit", 0, "maximum rows to process (0 = all)")
	cmd.Flags().Int64Var(&offset, "offset", 0, "skip this many rows first")
	cmd.Flags().Int64Var(&pageSize, "page-size", 100, "rows fetched per store query")
	cmd.Flags().StringVar(&errLog, "error-log", "", "path for the failed-update artifact")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "single attempt, skip read-after-write retries")
	cmd.Flags().IntVar(&maxRetry, "max-retries", 3, "update attempts per row")

	return cmd
}
