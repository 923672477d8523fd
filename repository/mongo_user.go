package repository

import (
	"context"
	"time"

	"critiq/database"
	"critiq/logger"
	"critiq/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type mongoUserRepository struct {
	client       *mongo.Client
	users        *mongo.Collection
	transactions bool
}

func NewMongoUserRepository(client *mongo.Client, db *mongo.Database, transactions bool) UserRepository {
	return &mongoUserRepository{
		client:       client,
		users:        db.Collection(database.UsersCollection),
		transactions: transactions,
	}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	if user.Playlists == nil {
		user.Playlists = []primitive.ObjectID{}
	}

	_, err := r.users.InsertOne(ctx, user)
	return writeErr(err)
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *mongoUserRepository) FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	filter := bson.M{"$or": bson.A{bson.M{"email": identifier}, bson.M{"username": identifier}}}
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *mongoUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	filter := bson.M{"$or": bson.A{bson.M{"email": email}, bson.M{"username": username}}}
	n, err := r.users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *mongoUserRepository) FindSummaries(ctx context.Context, ids []primitive.ObjectID) ([]*models.UserSummary, error) {
	summaries := []*models.UserSummary{}
	if len(ids) == 0 {
		return summaries, nil
	}

	opts := options.Find().SetProjection(bson.M{"username": 1, "fullName": 1, "avatar": 1})
	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *mongoUserRepository) Update(ctx context.Context, id primitive.ObjectID, update UserUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.FullName != nil {
		set["fullName"] = *update.FullName
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.Avatar != nil {
		set["avatar"] = *update.Avatar
	}
	if update.CoverImage != nil {
		set["coverImage"] = *update.CoverImage
	}

	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		return nil, writeErr(notFound(err))
	}
	return &user, nil
}

func (r *mongoUserRepository) SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	update := bson.M{"$set": bson.M{"refreshToken": token}}
	if token == "" {
		update = bson.M{"$unset": bson.M{"refreshToken": 1}}
	}

	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) SetFollowing(ctx context.Context, actor, target primitive.ObjectID, follow bool) (bool, error) {
	if !r.transactions {
		return r.setFollowing(ctx, actor, target, follow, true)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return false, err
	}
	defer session.EndSession(ctx)

	changed, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.setFollowing(sc, actor, target, follow, false)
	})
	if err != nil {
		return false, err
	}
	return changed.(bool), nil
}

// setFollowing applies the actor side as a conditional update so concurrent
// requests cannot both observe the old state, then mirrors it on the target.
// The target update is idempotent and also runs when the actor was already in
// the desired state, repairing a previously half-applied change. Outside a
// transaction a failed target update is compensated on the actor.
func (r *mongoUserRepository) setFollowing(ctx context.Context, actor, target primitive.ObjectID, follow, compensate bool) (bool, error) {
	now := time.Now().UTC()
	actorFilter, actorUpdate, targetUpdate, revert := followUpdates(actor, target, follow, now)

	res, err := r.users.UpdateOne(ctx, actorFilter, actorUpdate)
	if err != nil {
		return false, err
	}
	changed := res.ModifiedCount > 0

	if _, err := r.users.UpdateOne(ctx, bson.M{"_id": target}, targetUpdate); err != nil {
		if changed && compensate {
			if _, rerr := r.users.UpdateOne(context.Background(), bson.M{"_id": actor}, revert); rerr != nil {
				logger.Log.Error("Failed to revert follow change",
					zap.String("actor", actor.Hex()),
					zap.String("target", target.Hex()),
					zap.Error(rerr),
				)
			}
		}
		return false, err
	}
	return changed, nil
}

func followUpdates(actor, target primitive.ObjectID, follow bool, now time.Time) (actorFilter, actorUpdate, targetUpdate, revert bson.M) {
	add := func(field string, id primitive.ObjectID) bson.M {
		return bson.M{"$addToSet": bson.M{field: id}, "$set": bson.M{"updatedAt": now}}
	}
	pull := func(field string, id primitive.ObjectID) bson.M {
		return bson.M{"$pull": bson.M{field: id}, "$set": bson.M{"updatedAt": now}}
	}

	if follow {
		return bson.M{"_id": actor, "following": bson.M{"$ne": target}},
			add("following", target),
			add("followers", actor),
			pull("following", target)
	}
	return bson.M{"_id": actor, "following": target},
		pull("following", target),
		pull("followers", actor),
		add("following", target)
}

func (r *mongoUserRepository) AddPlaylist(ctx context.Context, userID, playlistID primitive.ObjectID) (int, error) {
	var user models.User
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"playlists": 1})
	update := bson.M{
		"$push": bson.M{"playlists": playlistID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	if err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&user); err != nil {
		return 0, notFound(err)
	}
	return len(user.Playlists), nil
}
