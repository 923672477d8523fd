package database

import (
	"context"
	"fmt"
	"time"

	"critiq/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	UsersCollection             = "users"
	ReviewsCollection           = "reviews"
	CommentsCollection          = "comments"
	NotificationsCollection     = "notifications"
	PlaylistsCollection         = "playlists"
	PushSubscriptionsCollection = "push_subscriptions"
)

var Client *mongo.Client
var DB *mongo.Database

// Connect opens the client, pings the server and selects dbName.
func Connect(ctx context.Context, uri, dbName string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return err
	}

	Client = client
	DB = client.Database(dbName)

	logger.Log.Info("Connected to MongoDB", zap.String("database", dbName))
	return nil
}

// ConnectWithRetry calls Connect up to attempts times, waiting delay between
// failures.
func ConnectWithRetry(ctx context.Context, uri, dbName string, attempts int, delay time.Duration) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = Connect(ctx, uri, dbName); err == nil {
			return nil
		}
		logger.Log.Warn("MongoDB connection attempt failed", zap.Int("attempt", i), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("connect to mongodb after %d attempts: %w", attempts, err)
}

func Disconnect() error {
	if Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Client.Disconnect(ctx); err != nil {
		return err
	}

	logger.Log.Info("Disconnected from MongoDB")
	return nil
}

// Indexes lists the indexes of every collection.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ReviewsCollection: {
			{Keys: bson.D{{Key: "tags", Value: 1}, {Key: "mood", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		CommentsCollection: {
			{Keys: bson.D{{Key: "post", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		NotificationsCollection: {
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "relatedId", Value: 1}}},
		},
		PlaylistsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}}},
		},
		PushSubscriptionsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

// EnsureIndexes creates the indexes on db. Existing indexes are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, models := range Indexes() {
		names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
		logger.Log.Info("Indexes ensured", zap.String("collection", collection), zap.Strings("indexes", names))
	}
	return nil
}
