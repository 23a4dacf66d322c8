package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/NewsGoat/internal/types"
)

// MongoStorage upserts articles into a MongoDB collection, keyed by URL.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStorage creates a new MongoDB storage backend.
func NewMongoStorage(uri, database, collection string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb index: %w", err)
	}

	return &MongoStorage{
		client:     client,
		collection: coll,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) Store(articles []*types.Article) error {
	if len(articles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.collection.BulkWrite(ctx, upsertModels(articles), options.BulkWrite().SetOrdered(false))
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("bulk upsert: %w", err)}
	}

	s.count += len(articles)
	s.logger.Debug("articles stored in mongodb",
		"upserted", res.UpsertedCount,
		"modified", res.ModifiedCount,
		"total", s.count,
	)
	return nil
}

// upsertModels replaces each article's document by URL, inserting it when
// missing.
func upsertModels(articles []*types.Article) []mongo.WriteModel {
	models := make([]mongo.WriteModel, len(articles))
	for i, a := range articles {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "url", Value: a.URL}}).
			SetReplacement(a).
			SetUpsert(true)
	}
	return models
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_articles", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
