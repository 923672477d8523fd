package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"critiq/logger"
	"critiq/models"
	"critiq/repository"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
)

type sendFunc func(ctx context.Context, message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// WebPushSink sends notifications as browser push messages to recipients
// with a stored subscription.
type WebPushSink struct {
	subs       repository.PushSubscriptionRepository
	publicKey  string
	privateKey string
	subscriber string
	send       sendFunc
}

func NewWebPushSink(subs repository.PushSubscriptionRepository, publicKey, privateKey, subscriber string) *WebPushSink {
	return &WebPushSink{
		subs:       subs,
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		send:       webpush.SendNotificationWithContext,
	}
}

func (s *WebPushSink) Name() string { return "webpush" }

func (s *WebPushSink) Deliver(ctx context.Context, n *models.Notification) error {
	sub, err := s.subs.FindByUser(ctx, n.RecipientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	payload, err := json.Marshal(pushPayload(n))
	if err != nil {
		return err
	}

	resp, err := s.send(ctx, payload, &sub.Sub, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             30,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		logger.Log.Info("Push subscription expired, deleting", logger.WithUserID(n.RecipientID.Hex()))
		if err := s.subs.DeleteByUser(ctx, n.RecipientID); err != nil {
			logger.Log.Warn("Failed to delete expired subscription", zap.Error(err))
		}
		return nil
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service responded %d", resp.StatusCode)
	}
	return nil
}

func pushPayload(n *models.Notification) map[string]interface{} {
	title := "New notification"
	switch n.Type {
	case models.NotificationFollow:
		title = "New follower"
	case models.NotificationLike:
		title = "New like"
	case models.NotificationComment:
		title = "New comment"
	}

	icon := ""
	if n.Sender != nil {
		icon = n.Sender.Avatar
	}

	return map[string]interface{}{
		"title": title,
		"body":  n.Message,
		"icon":  icon,
		"data": map[string]interface{}{
			"type":      n.Type,
			"relatedId": n.RelatedID.Hex(),
			"timestamp": n.CreatedAt.Unix(),
		},
	}
}
