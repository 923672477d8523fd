package repository

import (
	"context"
	"time"

	"critiq/database"
	"critiq/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoNotificationRepository struct {
	notifications *mongo.Collection
}

func NewMongoNotificationRepository(db *mongo.Database) NotificationRepository {
	return &mongoNotificationRepository{notifications: db.Collection(database.NotificationsCollection)}
}

func (r *mongoNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	now := time.Now().UTC()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.CreatedAt, n.UpdatedAt = now, now

	sender := n.Sender
	n.Sender = nil
	_, err := r.notifications.InsertOne(ctx, n)
	n.Sender = sender
	return err
}

func (r *mongoNotificationRepository) ListRecent(ctx context.Context, recipient primitive.ObjectID, limit int) ([]*models.Notification, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"recipient": recipient}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
	pipeline = append(pipeline, lookupUser("sender", "senderUser")...)

	cursor, err := r.notifications.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []*models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *mongoNotificationRepository) CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	return r.notifications.CountDocuments(ctx, bson.M{"recipient": recipient, "read": false})
}

func (r *mongoNotificationRepository) MarkRead(ctx context.Context, recipient primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	filter := bson.M{"recipient": recipient, "read": false}
	if len(ids) > 0 {
		filter["_id"] = bson.M{"$in": ids}
	}

	update := bson.M{"$set": bson.M{"read": true, "updatedAt": time.Now().UTC()}}
	res, err := r.notifications.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoNotificationRepository) DeleteByRelated(ctx context.Context, relatedID primitive.ObjectID) (int64, error) {
	res, err := r.notifications.DeleteMany(ctx, bson.M{"relatedId": relatedID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
