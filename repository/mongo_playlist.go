package repository

import (
	"context"
	"time"

	"critiq/database"
	"critiq/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoPlaylistRepository struct {
	playlists *mongo.Collection
}

func NewMongoPlaylistRepository(db *mongo.Database) PlaylistRepository {
	return &mongoPlaylistRepository{playlists: db.Collection(database.PlaylistsCollection)}
}

func (r *mongoPlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	now := time.Now().UTC()
	if playlist.ID.IsZero() {
		playlist.ID = primitive.NewObjectID()
	}
	playlist.CreatedAt, playlist.UpdatedAt = now, now
	if playlist.Movies == nil {
		playlist.Movies = []models.Movie{}
	}

	_, err := r.playlists.InsertOne(ctx, playlist)
	return err
}

func (r *mongoPlaylistRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Playlist, error) {
	return r.find(ctx, bson.M{"user": userID})
}

func (r *mongoPlaylistRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Playlist, error) {
	if len(ids) == 0 {
		return []*models.Playlist{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *mongoPlaylistRepository) find(ctx context.Context, filter bson.M) ([]*models.Playlist, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.playlists.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	playlists := []*models.Playlist{}
	if err := cursor.All(ctx, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}
