package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	showsCollection     = "shows"
	watchlistCollection = "watchlist"
)

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Store combines the show and watchlist repositories behind the interface
// the watchlist service consumes.
type Store struct {
	*ShowRepository
	*WatchlistRepository
}

func NewStore(client *mongo.Client, dbName string) *Store {
	return &Store{
		ShowRepository:      NewShowRepository(client, dbName),
		WatchlistRepository: NewWatchlistRepository(client, dbName),
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	if s == nil || s.WatchlistRepository == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "following", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}}},
	}
	_, err := s.WatchlistRepository.collection.Indexes().CreateMany(ctx, models)
	return err
}
