package repository

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewMongoStore builds the repositories on db. When transactions is true the
// follow graph is updated inside a multi-document transaction, which needs a
// replica set.
func NewMongoStore(client *mongo.Client, db *mongo.Database, transactions bool) *Store {
	return &Store{
		Users:             NewMongoUserRepository(client, db, transactions),
		Reviews:           NewMongoReviewRepository(db),
		Comments:          NewMongoCommentRepository(db),
		Notifications:     NewMongoNotificationRepository(db),
		Playlists:         NewMongoPlaylistRepository(db),
		PushSubscriptions: NewMongoPushSubscriptionRepository(db),
	}
}

// lookupUser populates the user referenced by localField into as, keeping only
// the public fields.
func lookupUser(localField, as string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from": "users",
			"let":  bson.M{"uid": "$" + localField},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$uid"}}}},
				bson.M{"$project": bson.M{"username": 1, "fullName": 1, "avatar": 1}},
			},
			"as": as,
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$" + as, "preserveNullAndEmptyArrays": true}}},
	}
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func writeErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
