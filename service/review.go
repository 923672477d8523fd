package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"critiq/apierror"
	"critiq/cache"
	"critiq/logger"
	"critiq/models"
	"critiq/notify"
	"critiq/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ReviewService struct {
	reviews       repository.ReviewRepository
	comments      repository.CommentRepository
	notifications repository.NotificationRepository
	images        ImageUploader
	cache         *cache.Store
	notifier      Notifier
}

func NewReviewService(store *repository.Store, images ImageUploader, feedCache *cache.Store, notifier Notifier) *ReviewService {
	return &ReviewService{
		reviews:       store.Reviews,
		comments:      store.Comments,
		notifications: store.Notifications,
		images:        images,
		cache:         feedCache,
		notifier:      notifier,
	}
}

// ReviewInput is an upload as received from the multipart form.
type ReviewInput struct {
	Movie   string
	Rating  string
	Comment string
	Mood    string
	// Tags holds the raw form values: either one JSON encoded array or one
	// value per tag.
	Tags    []string
	Spoiler string
	Image   io.Reader
}

// ParseTags accepts a JSON encoded array or plain values and returns the
// trimmed, non-empty tags.
func ParseTags(values []string) ([]string, error) {
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var decoded []string
		if err := json.Unmarshal([]byte(values[0]), &decoded); err != nil {
			return nil, apierror.BadRequest("Invalid tags format - must be a valid JSON array")
		}
		values = decoded
	}

	tags := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			tags = append(tags, v)
		}
	}
	if len(tags) == 0 {
		return nil, apierror.BadRequest("tags is required")
	}
	return tags, nil
}

func parseRating(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apierror.BadRequest("rating is required")
	}
	rating, err := strconv.Atoi(raw)
	if err != nil || rating < models.MinRating || rating > models.MaxRating {
		return 0, apierror.BadRequest(fmt.Sprintf("rating must be an integer between %d and %d", models.MinRating, models.MaxRating))
	}
	return rating, nil
}

func (s *ReviewService) Upload(ctx context.Context, userID primitive.ObjectID, in ReviewInput) (*models.Review, error) {
	rating, err := parseRating(in.Rating)
	if err != nil {
		return nil, err
	}

	comment := strings.TrimSpace(in.Comment)
	mood := strings.TrimSpace(in.Mood)
	movie := strings.TrimSpace(in.Movie)
	switch {
	case comment == "":
		return nil, apierror.BadRequest("comment is required")
	case len([]rune(comment)) > models.MaxReviewComment:
		return nil, apierror.BadRequest(fmt.Sprintf("comment must be at most %d characters", models.MaxReviewComment))
	case mood == "":
		return nil, apierror.BadRequest("mood is required")
	case movie == "":
		return nil, apierror.BadRequest("movie is required")
	}

	tags, err := ParseTags(in.Tags)
	if err != nil {
		return nil, err
	}
	if in.Image == nil {
		return nil, apierror.BadRequest("Image is required")
	}

	url, err := s.images.UploadImage(ctx, in.Image, FolderReviews)
	if err != nil {
		return nil, uploadErr("Failed to upload image", err)
	}

	review := &models.Review{
		Movie:   movie,
		Image:   url,
		Rating:  rating,
		Comment: comment,
		Tags:    tags,
		Mood:    mood,
		Spoiler: strings.EqualFold(strings.TrimSpace(in.Spoiler), "true"),
		Likes:   []primitive.ObjectID{},
		UserID:  userID,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, storeErr(err, "Review")
	}

	s.invalidateFeed(ctx)
	logger.Log.Info("Review uploaded",
		logger.WithUserID(userID.Hex()),
		zap.String("review_id", review.ID.Hex()),
		zap.String("movie", review.Movie),
	)
	return review, nil
}

// Delete removes a review owned by userID together with its comments and the
// notifications that point at it. The dependent cleanup is best effort.
func (s *ReviewService) Delete(ctx context.Context, userID primitive.ObjectID, rawID string) error {
	id, err := ParseID(rawID, "Invalid review ID")
	if err != nil {
		return err
	}

	review, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return storeErr(err, "Review")
	}
	if review.UserID != userID {
		return apierror.Forbidden("You are not authorized to delete this review")
	}

	if err := s.reviews.Delete(ctx, id); err != nil {
		return storeErr(err, "Review")
	}

	field := zap.String("review_id", id.Hex())
	_, err = s.comments.DeleteByPost(ctx, id)
	bestEffort("delete review comments", err, field)
	_, err = s.notifications.DeleteByRelated(ctx, id)
	bestEffort("delete review notifications", err, field)
	s.invalidateFeed(ctx)
	return nil
}

func feedKey(filter models.ReviewFilter) string {
	return cache.ReviewFeedPrefix + filter.Tag + ":" + filter.Mood
}

// List returns the public feed newest first. The unscoped feed is served
// from the cache when one is configured.
func (s *ReviewService) List(ctx context.Context, filter models.ReviewFilter) ([]*models.Review, error) {
	cacheable := filter.UserID.IsZero()
	if cacheable {
		var cached []*models.Review
		hit, err := s.cache.GetJSON(ctx, feedKey(filter), &cached)
		if err != nil {
			logger.Log.Warn("Review feed cache read failed", zap.Error(err))
		}
		if hit {
			return cached, nil
		}
	}

	reviews, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "Review")
	}

	if cacheable {
		if err := s.cache.SetJSON(ctx, feedKey(filter), reviews, cache.ReviewFeedTTL); err != nil {
			logger.Log.Warn("Review feed cache write failed", zap.Error(err))
		}
	}
	return reviews, nil
}

func (s *ReviewService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Review, error) {
	return s.List(ctx, models.ReviewFilter{UserID: userID})
}

func (s *ReviewService) invalidateFeed(ctx context.Context) {
	if err := s.cache.DelPrefix(ctx, cache.ReviewFeedPrefix); err != nil {
		logger.Log.Warn("Review feed cache invalidation failed", zap.Error(err))
	}
}

func postID(raw string) (primitive.ObjectID, error) {
	if strings.TrimSpace(raw) == "" {
		return primitive.NilObjectID, apierror.BadRequest("Post ID is required")
	}
	return ParseID(raw, "Invalid post ID")
}

// ToggleLike flips the like of liker on a review and returns the new count.
// The owner is notified only when a like is added by someone else.
func (s *ReviewService) ToggleLike(ctx context.Context, liker *models.User, rawPostID string) (int, error) {
	id, err := postID(rawPostID)
	if err != nil {
		return 0, err
	}

	review, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return 0, storeErr(err, "Post")
	}

	like := !review.LikedBy(liker.ID)
	changed, count, err := s.reviews.SetLike(ctx, id, liker.ID, like)
	if err != nil {
		return 0, storeErr(err, "Post")
	}
	if changed {
		s.invalidateFeed(ctx)
	}

	if changed && like && review.UserID != liker.ID {
		s.notifier.Notify(notify.Request{
			Recipient: review.UserID,
			Sender:    liker.ID,
			Type:      models.NotificationLike,
			RelatedID: id,
			Message:   liker.Username + " liked your post.",
		})
	}
	return count, nil
}

func (s *ReviewService) LikeStatus(ctx context.Context, userID primitive.ObjectID, rawPostID string) (*models.LikeState, error) {
	id, err := postID(rawPostID)
	if err != nil {
		return nil, err
	}

	review, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Review")
	}
	return &models.LikeState{IsLiked: review.LikedBy(userID), Count: len(review.Likes)}, nil
}
