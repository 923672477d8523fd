package service

import (
	"context"
	"strings"

	"critiq/apierror"
	"critiq/models"
	"critiq/notify"
	"critiq/repository"
	"critiq/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CommentService struct {
	comments    repository.CommentRepository
	reviews     repository.ReviewRepository
	notifier    Notifier
	broadcaster Broadcaster
	notifyOwner bool
}

// NewCommentService builds the comment service. When notifyOwner is set the
// review owner gets a comment notification for every comment by someone else.
func NewCommentService(store *repository.Store, notifier Notifier, broadcaster Broadcaster, notifyOwner bool) *CommentService {
	return &CommentService{
		comments:    store.Comments,
		reviews:     store.Reviews,
		notifier:    notifier,
		broadcaster: broadcaster,
		notifyOwner: notifyOwner,
	}
}

// Create adds a comment to a review and pushes it to the review room.
func (s *CommentService) Create(ctx context.Context, author *models.User, content, rawPostID string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" || strings.TrimSpace(rawPostID) == "" {
		return nil, apierror.BadRequest("Content and postId are required")
	}
	postID, err := ParseID(rawPostID, "Invalid post ID")
	if err != nil {
		return nil, err
	}

	review, err := s.reviews.FindByID(ctx, postID)
	if err != nil {
		return nil, storeErr(err, "Review")
	}

	comment := &models.Comment{
		Content: content,
		PostID:  postID,
		UserID:  author.ID,
		Likes:   []primitive.ObjectID{},
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, storeErr(err, "Comment")
	}
	comment.Author = author.Summary()

	s.broadcaster.EmitToRoom(websocket.PostRoom(postID.Hex()), websocket.EventNewComment, comment)
	if s.notifyOwner && review.UserID != author.ID {
		s.notifier.Notify(notify.Request{
			Recipient: review.UserID,
			Sender:    author.ID,
			Type:      models.NotificationComment,
			RelatedID: postID,
			Message:   author.Username + " commented on your post.",
		})
	}
	return comment, nil
}

func (s *CommentService) List(ctx context.Context, rawPostID string) ([]*models.Comment, error) {
	postID, err := primitive.ObjectIDFromHex(rawPostID)
	if err != nil {
		return nil, apierror.BadRequest("Invalid or missing postId")
	}

	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, storeErr(err, "Comment")
	}
	return comments, nil
}

// owned loads a comment and checks that userID wrote it.
func (s *CommentService) owned(ctx context.Context, userID primitive.ObjectID, rawID, denied string) (*models.Comment, error) {
	id, err := ParseID(rawID, "Invalid comment ID")
	if err != nil {
		return nil, err
	}
	comment, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Comment")
	}
	if comment.UserID != userID {
		return nil, apierror.Forbidden(denied)
	}
	return comment, nil
}

func (s *CommentService) Update(ctx context.Context, author *models.User, rawID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apierror.BadRequest("Content is required")
	}

	existing, err := s.owned(ctx, author.ID, rawID, "You can only update your own comments")
	if err != nil {
		return nil, err
	}

	comment, err := s.comments.UpdateContent(ctx, existing.ID, content)
	if err != nil {
		return nil, storeErr(err, "Comment")
	}
	comment.Author = author.Summary()

	s.broadcaster.EmitToRoom(websocket.PostRoom(comment.PostID.Hex()), websocket.EventCommentUpdated, comment)
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, userID primitive.ObjectID, rawID string) error {
	comment, err := s.owned(ctx, userID, rawID, "You can only delete your own comments")
	if err != nil {
		return err
	}

	if err := s.comments.Delete(ctx, comment.ID); err != nil {
		return storeErr(err, "Comment")
	}

	s.broadcaster.EmitToRoom(websocket.PostRoom(comment.PostID.Hex()), websocket.EventCommentDeleted, comment.ID.Hex())
	return nil
}

// ToggleLike flips the like of userID on a comment.
func (s *CommentService) ToggleLike(ctx context.Context, userID primitive.ObjectID, rawID string) (*models.LikeState, error) {
	id, err := ParseID(rawID, "Invalid comment ID")
	if err != nil {
		return nil, err
	}
	comment, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Comment")
	}

	like := !comment.LikedBy(userID)
	_, count, err := s.comments.SetLike(ctx, id, userID, like)
	if err != nil {
		return nil, storeErr(err, "Comment")
	}
	return &models.LikeState{IsLiked: like, Count: count}, nil
}
