package repository

import (
	"context"
	"errors"

	"critiq/models"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// UserUpdate holds the optional profile fields to change. Nil fields are
// left untouched.
type UserUpdate struct {
	Username   *string
	FullName   *string
	Email      *string
	Bio        *string
	Avatar     *string
	CoverImage *string
}

func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.FullName == nil && u.Email == nil &&
		u.Bio == nil && u.Avatar == nil && u.CoverImage == nil
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	FindSummaries(ctx context.Context, ids []primitive.ObjectID) ([]*models.UserSummary, error)
	Update(ctx context.Context, id primitive.ObjectID, update UserUpdate) (*models.User, error)
	// SetRefreshToken stores token; an empty token unsets it.
	SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	// SetFollowing makes actor follow (or unfollow) target, updating both
	// sides. changed is false when actor was already in the desired state.
	SetFollowing(ctx context.Context, actor, target primitive.ObjectID, follow bool) (changed bool, err error)
	AddPlaylist(ctx context.Context, userID, playlistID primitive.ObjectID) (int, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	// List returns matching reviews newest first with the author populated.
	List(ctx context.Context, filter models.ReviewFilter) ([]*models.Review, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// SetLike adds or removes userID from the review likes. It returns
	// whether membership changed and the resulting like count.
	SetLike(ctx context.Context, reviewID, userID primitive.ObjectID, like bool) (changed bool, count int, err error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	// ListByPost returns the comments of a review newest first with the
	// author populated.
	ListByPost(ctx context.Context, postID primitive.ObjectID) ([]*models.Comment, error)
	UpdateContent(ctx context.Context, id primitive.ObjectID, content string) (*models.Comment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error)
	SetLike(ctx context.Context, commentID, userID primitive.ObjectID, like bool) (changed bool, count int, err error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	// ListRecent returns at most limit notifications newest first with the
	// sender populated.
	ListRecent(ctx context.Context, recipient primitive.ObjectID, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	// MarkRead marks the given notifications of recipient as read; no ids
	// marks all of them.
	MarkRead(ctx context.Context, recipient primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	DeleteByRelated(ctx context.Context, relatedID primitive.ObjectID) (int64, error)
}

type PlaylistRepository interface {
	Create(ctx context.Context, playlist *models.Playlist) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Playlist, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Playlist, error)
}

type PushSubscriptionRepository interface {
	Upsert(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

// Store groups the repositories used by the services.
type Store struct {
	Users             UserRepository
	Reviews           ReviewRepository
	Comments          CommentRepository
	Notifications     NotificationRepository
	Playlists         PlaylistRepository
	PushSubscriptions PushSubscriptionRepository
}
