package service

import (
	"context"
	"net/http"

	"critiq/apierror"
	"critiq/logger"
	"critiq/repository"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PushService struct {
	subscriptions repository.PushSubscriptionRepository
	publicKey     string
}

func NewPushService(subscriptions repository.PushSubscriptionRepository, publicKey string) *PushService {
	return &PushService{subscriptions: subscriptions, publicKey: publicKey}
}

// PublicKey returns the VAPID key browsers subscribe with. It is empty when
// web push is not configured.
func (s *PushService) PublicKey() string {
	return s.publicKey
}

// Subscribe stores the browser subscription of userID, replacing any earlier
// one.
func (s *PushService) Subscribe(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error {
	if s.publicKey == "" {
		return apierror.New(http.StatusServiceUnavailable, "Web push is not configured")
	}
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return apierror.BadRequest("endpoint and keys are required")
	}

	if err := s.subscriptions.Upsert(ctx, userID, sub); err != nil {
		return apierror.Internal("Failed to save subscription", err)
	}
	logger.Log.Info("Push subscription saved", logger.WithUserID(userID.Hex()))
	return nil
}
