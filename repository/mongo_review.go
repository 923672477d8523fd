package repository

import (
	"context"
	"errors"
	"time"

	"critiq/database"
	"critiq/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoReviewRepository struct {
	reviews *mongo.Collection
}

func NewMongoReviewRepository(db *mongo.Database) ReviewRepository {
	return &mongoReviewRepository{reviews: db.Collection(database.ReviewsCollection)}
}

func (r *mongoReviewRepository) Create(ctx context.Context, review *models.Review) error {
	now := time.Now().UTC()
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	review.CreatedAt, review.UpdatedAt = now, now
	if review.Likes == nil {
		review.Likes = []primitive.ObjectID{}
	}

	author := review.Author
	review.Author = nil
	_, err := r.reviews.InsertOne(ctx, review)
	review.Author = author
	return err
}

func (r *mongoReviewRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	var review models.Review
	if err := r.reviews.FindOne(ctx, bson.M{"_id": id}).Decode(&review); err != nil {
		return nil, notFound(err)
	}
	return &review, nil
}

func (r *mongoReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]*models.Review, error) {
	match := bson.M{}
	if !filter.UserID.IsZero() {
		match["user"] = filter.UserID
	}
	if filter.Tag != "" {
		match["tags"] = filter.Tag
	}
	if filter.Mood != "" {
		match["mood"] = filter.Mood
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
	}
	pipeline = append(pipeline, lookupUser("user", "author")...)

	cursor, err := r.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reviews := []*models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *mongoReviewRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.reviews.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoReviewRepository) SetLike(ctx context.Context, reviewID, userID primitive.ObjectID, like bool) (bool, int, error) {
	return setLike(ctx, r.reviews, reviewID, userID, like)
}

// likesDoc decodes only the likes array.
type likesDoc struct {
	Likes []primitive.ObjectID `bson:"likes"`
}

// setLike adds or removes userID from the likes of document id with a
// conditional update, so the array holds each user at most once.
func setLike(ctx context.Context, coll *mongo.Collection, id, userID primitive.ObjectID, like bool) (bool, int, error) {
	filter := bson.M{"_id": id, "likes": bson.M{"$ne": userID}}
	update := bson.M{"$addToSet": bson.M{"likes": userID}}
	if !like {
		filter = bson.M{"_id": id, "likes": userID}
		update = bson.M{"$pull": bson.M{"likes": userID}}
	}

	var doc likesDoc
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes": 1})
	err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return true, len(doc.Likes), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, 0, err
	}

	// Already in the desired state, or the document is gone.
	err = coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"likes": 1})).Decode(&doc)
	if err != nil {
		return false, 0, notFound(err)
	}
	return false, len(doc.Likes), nil
}
