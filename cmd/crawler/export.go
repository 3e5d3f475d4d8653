package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"news_spider/internal/store"
)

func newExportCmd() *cobra.Command {
	var (
		ticker    string
		year      int
		limit     int64
		offset    int64
		countOnly bool
		output    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Query the news store by ticker/year and export to CSV",
		Example: `  crawler export --ticker BID --year 2024 --output bid_2024.csv
  crawler export --ticker FPT --count`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := context.Background()
			st, err := store.New(ctx, cfg.DB)
			if err != nil {
				return err
			}
			defer st.Close()

			q := store.Query{Ticker: ticker, Year: year, Limit: limit, Offset: offset}

			if countOnly {
				n, err := st.Count(ctx, q)
				if err != nil {
					return err
				}
				fmt.Println(n)
				return nil
			}

			rows, err := st.Find(ctx, q)
			if err != nil {
				return err
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			w := csv.NewWriter(out)
			header := []string{"id", "date", "time", "title", "content", "ticker", "source",
				"negative_score", "positive_score", "neutral_score"}
			if err := w.Write(header); err != nil {
				return err
			}
			for _, r := range rows {
				row := []string{
					r.ID.Hex(), r.Date, r.Time, r.Title, r.Content, r.Ticker, r.Source,
					formatScore(r.NegativeScore), formatScore(r.PositiveScore), formatScore(r.NeutralScore),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return err
			}

			log.Infow("export done", "rows", len(rows), "output", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "filter by ticker")
	cmd.Flags().IntVar(&year, "year", 0, "filter by publish year")
	cmd.Flags().Int64Var(&limit, "limit", 0, "maximum rows (0 = all)")
	cmd.Flags().Int64Var(&offset, "offset", 0, "skip this many rows")
	cmd.Flags().BoolVar(&countOnly, "count", false, "print the row count only")
	cmd.Flags().StringVar(&output, "output", "", "CSV output path (stdout when empty)")

	return cmd
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
