// Package store is the persistent-store sink: a mongo collection of news
// records keyed by the natural key (title, ticker, date) so repeated runs
// upsert instead of duplicating rows. It also carries the sentiment score
// columns the backfill workflow updates.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"news_spider/internal/config"
	"news_spider/internal/models"
)

const opTimeout = 10 * time.Second

// NewsRow is a stored record plus its assigned identifier and sentiment
// scores.
type NewsRow struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Date    string             `bson:"date"`
	Time    string             `bson:"time"`
	Title   string             `bson:"title"`
	Content string             `bson:"content"`
	Ticker  string             `bson:"ticker"`
	Source  string             `bson:"source"`

	NegativeScore float64 `bson:"negative_score"`
	PositiveScore float64 `bson:"positive_score"`
	NeutralScore  float64 `bson:"neutral_score"`
}

// Query selects rows for Find and Count. Zero values mean "no filter";
// Limit zero means no limit.
type Query struct {
	Ticker string
	Year   int
	Limit  int64
	Offset int64
}

type Store struct {
	client *mongo.Client
	news   *mongo.Collection
}

func New(ctx context.Context, cfg config.DBConfig) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping store: %w", err)
	}

	s := &Store{
		client: client,
		news:   client.Database(cfg.Database).Collection(cfg.Collections.News),
	}
	if err := s.createIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.news.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "title", Value: 1},
				{Key: "ticker", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "ticker", Value: 1}, {Key: "date", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// WriteBatch upserts a batch of records by natural key. Implements
// sink.Sink so the batch writer can target the store directly.
func (s *Store) WriteBatch(records []models.NewsRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ops := make([]mongo.WriteModel, 0, len(records))
	for _, r := range records {
		filter := bson.M{"title": r.Title, "ticker": r.Ticker, "date": r.Date}
		ops = append(ops, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(bson.M{"$set": r}).
			SetUpsert(true))
	}

	_, err := s.news.BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("bulk upsert: %w", err)
	}
	return nil
}

// Find returns matching rows with limit/offset paging, newest first.
func (s *Store) Find(ctx context.Context, q Query) ([]NewsRow, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if q.Offset > 0 {
		opts.SetSkip(q.Offset)
	}

	cursor, err := s.news.Find(ctx, q.filter(), opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []NewsRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

// Count returns the number of matching rows without fetching them.
func (s *Store) Count(ctx context.Context, q Query) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	n, err := s.news.CountDocuments(ctx, q.filter())
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// UpdateScores writes the three sentiment scores for one row and reports
// how many rows matched. A zero matched count is the caller's signal to
// retry.
func (s *Store) UpdateScores(ctx context.Context, id primitive.ObjectID, scores models.SentimentScores) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.news.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"negative_score": scores.Negative,
		"positive_score": scores.Positive,
		"neutral_score":  scores.Neutral,
	}})
	if err != nil {
		return 0, fmt.Errorf("update scores %s: %w", id.Hex(), err)
	}
	return res.MatchedCount, nil
}

// GetScores re-reads one row's scores, used by the backfill's
// read-after-write verification.
func (s *Store) GetScores(ctx context.Context, id primitive.ObjectID) (models.SentimentScores, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var row NewsRow
	if err := s.news.FindOne(ctx, bson.M{"_id": id}).Decode(&row); err != nil {
		return models.SentimentScores{}, fmt.Errorf("read back %s: %w", id.Hex(), err)
	}
	return models.SentimentScores{
		Negative: row.NegativeScore,
		Positive: row.PositiveScore,
		Neutral:  row.NeutralScore,
	}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (q Query) filter() bson.M {
	filter := bson.M{}
	if q.Ticker != "" {
		filter["ticker"] = q.Ticker
	}
	if q.Year > 0 {
		// Dates are stored as YYYY-MM-DD strings; a string range covers
		// the whole year.
		filter["date"] = bson.M{
			"$gte": fmt.Sprintf("%04d-01-01", q.Year),
			"$lte": fmt.Sprintf("%04d-12-31", q.Year),
		}
	}
	return filter
}
