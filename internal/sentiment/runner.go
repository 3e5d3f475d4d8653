package sentiment

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"news_spider/internal/models"
	"news_spider/internal/store"
)

// The hosted backend occasionally acknowledges a write it has not applied,
// so every update is read back and compared within a small float tolerance.
const (
	scoreTolerance = 1e-4
	retryDelay     = 500 * time.Millisecond
)

// ScoreStore is the slice of the news store the backfill needs.
type ScoreStore interface {
	Find(ctx context.Context, q store.Query) ([]store.NewsRow, error)
	Count(ctx context.Context, q store.Query) (int64, error)
	UpdateScores(ctx context.Context, id primitive.ObjectID, scores models.SentimentScores) (int64, error)
	GetScores(ctx context.Context, id primitive.ObjectID) (models.SentimentScores, error)
}

// Stats summarises one backfill run.
type Stats struct {
	Rows    int
	Updated int
	Failed  int
}

// Runner pages through stored rows, scores each content and writes the
// scores back. Rows whose update cannot be verified after MaxRetries
// attempts are collected into a JSON error-log artifact for a later retry
// pass.
type Runner struct {
	Store      ScoreStore
	Analyzer   Analyzer
	PageSize   int64
	MaxRetries int
	ErrLogPath string
	Log        *zap.SugaredLogger
}

type failedUpdate struct {
	ID     string                 `json:"id"`
	Ticker string                 `json:"ticker"`
	Title  string                 `json:"title"`
	Scores models.SentimentScores `json:"scores"`
}

// Run processes rows matching q (page-wise via limit/offset on top of the
// caller's own offset). It keeps going past individual failures; only a
// store-level paging error aborts.
func (r *Runner) Run(ctx context.Context, q store.Query) (Stats, error) {
	pageSize := r.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	maxRetries := r.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	total, err := r.Store.Count(ctx, q)
	if err != nil {
		return Stats{}, err
	}
	r.Log.Infow("sentiment backfill starting", "rows", total)

	var stats Stats
	var failures []failedUpdate

	offset := q.Offset
	remaining := q.Limit // zero means unbounded
	for {
		if ctx.Err() != nil {
			break
		}

		page := q
		page.Offset = offset
		page.Limit = pageSize
		if remaining > 0 && remaining < pageSize {
			page.Limit = remaining
		}

		rows, err := r.Store.Find(ctx, page)
		if err != nil {
			r.writeErrorLog(failures)
			return stats, err
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			stats.Rows++
			scores := r.Analyzer.Analyze(row.Content)
			if r.updateVerified(ctx, row.ID, scores, maxRetries) {
				stats.Updated++
			} else {
				stats.Failed++
				failures = append(failures, failedUpdate{
					ID:     row.ID.Hex(),
					Ticker: row.Ticker,
					Title:  row.Title,
					Scores: scores,
				})
			}
		}

		if stats.Rows%500 == 0 {
			r.Log.Infow("sentiment progress", "processed", stats.Rows, "updated", stats.Updated, "failed", stats.Failed)
		}

		offset += int64(len(rows))
		if remaining > 0 {
			remaining -= int64(len(rows))
			if remaining <= 0 {
				break
			}
		}
	}

	r.writeErrorLog(failures)
	r.Log.Infow("sentiment backfill done", "rows", stats.Rows, "updated", stats.Updated, "failed", stats.Failed)
	return stats, nil
}

// updateVerified writes the scores and re-reads them, retrying the whole
// update on a zero-match write, a read-back failure or a mismatch beyond
// the tolerance.
func (r *Runner) updateVerified(ctx context.Context, id primitive.ObjectID, scores models.SentimentScores, maxRetries int) bool {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(retryDelay):
			}
		}

		matched, err := r.Store.UpdateScores(ctx, id, scores)
		if err != nil || matched == 0 {
			r.Log.Debugw("score update failed", "id", id.Hex(), "attempt", attempt, "matched", matched, "error", err)
			continue
		}

		saved, err := r.Store.GetScores(ctx, id)
		if err != nil {
			r.Log.Debugw("score read-back failed", "id", id.Hex(), "attempt", attempt, "error", err)
			continue
		}
		if scoresMatch(saved, scores) {
			return true
		}
		r.Log.Warnw("score verification mismatch", "id", id.Hex(), "attempt", attempt)
	}
	return false
}

func scoresMatch(a, b models.SentimentScores) bool {
	return math.Abs(a.Negative-b.Negative) < scoreTolerance &&
		math.Abs(a.Positive-b.Positive) < scoreTolerance &&
		math.Abs(a.Neutral-b.Neutral) < scoreTolerance
}

func (r *Runner) writeErrorLog(failures []failedUpdate) {
	if len(failures) == 0 || r.ErrLogPath == "" {
		return
	}
	data, err := json.MarshalIndent(failures, "", "  ")
	if err != nil {
		r.Log.Errorw("marshal error log", "error", err)
		return
	}
	if err := os.WriteFile(r.ErrLogPath, data, 0o644); err != nil {
		r.Log.Errorw("write error log", "path", r.ErrLogPath, "error", err)
		return
	}
	r.Log.Warnw("failed updates written for later retry", "path", r.ErrLogPath, "count", len(failures))
}
