package notify

import (
	"context"

	"critiq/models"
	"critiq/websocket"
)

// UserEmitter sends an event to every connection of a user.
type UserEmitter interface {
	SendToUser(userID, event string, payload interface{})
}

// RealtimeSink pushes notifications to the recipient's websocket room.
type RealtimeSink struct {
	emitter UserEmitter
}

func NewRealtimeSink(emitter UserEmitter) *RealtimeSink {
	return &RealtimeSink{emitter: emitter}
}

func (s *RealtimeSink) Name() string { return "websocket" }

func (s *RealtimeSink) Deliver(_ context.Context, n *models.Notification) error {
	s.emitter.SendToUser(n.RecipientID.Hex(), websocket.EventNotification, n)
	return nil
}
