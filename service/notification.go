package service

import (
	"context"

	"critiq/apierror"
	"critiq/models"
	"critiq/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedSize is how many notifications the feed returns.
const FeedSize = 10

type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// Feed returns the most recent notifications of userID and its unread count.
func (s *NotificationService) Feed(ctx context.Context, userID primitive.ObjectID) (*models.NotificationFeed, error) {
	list, err := s.notifications.ListRecent(ctx, userID, FeedSize)
	if err != nil {
		return nil, apierror.Internal("Error retrieving notifications", err)
	}
	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, apierror.Internal("Error retrieving notifications", err)
	}
	if list == nil {
		list = []*models.Notification{}
	}
	return &models.NotificationFeed{Notifications: list, Unread: unread}, nil
}

// MarkRead marks the given notifications of userID as read, or all of them
// when rawIDs is empty. It returns how many changed.
func (s *NotificationService) MarkRead(ctx context.Context, userID primitive.ObjectID, rawIDs []string) (int64, error) {
	ids := make([]primitive.ObjectID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := ParseID(raw, "Invalid notification ID")
		if err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}

	n, err := s.notifications.MarkRead(ctx, userID, ids)
	if err != nil {
		return 0, storeErr(err, "Notification")
	}
	return n, nil
}
