package repository

import (
	"context"

	"critiq/database"
	"critiq/models"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoPushSubscriptionRepository struct {
	subs *mongo.Collection
}

func NewMongoPushSubscriptionRepository(db *mongo.Database) PushSubscriptionRepository {
	return &mongoPushSubscriptionRepository{subs: db.Collection(database.PushSubscriptionsCollection)}
}

// Upsert replaces the subscription of userID, creating it when missing.
func (r *mongoPushSubscriptionRepository) Upsert(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error {
	_, err := r.subs.UpdateOne(
		ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"userId": userID, "sub": sub}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *mongoPushSubscriptionRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	if err := r.subs.FindOne(ctx, bson.M{"userId": userID}).Decode(&sub); err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (r *mongoPushSubscriptionRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.subs.DeleteOne(ctx, bson.M{"userId": userID})
	return err
}
