package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationLike     NotificationType = "like"
	NotificationPost     NotificationType = "post"
	NotificationPlaylist NotificationType = "playlist"
	NotificationFollow   NotificationType = "follow"
	NotificationComment  NotificationType = "comment"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationLike, NotificationPost, NotificationPlaylist, NotificationFollow, NotificationComment:
		return true
	}
	return false
}

type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	RecipientID primitive.ObjectID `bson:"recipient" json:"recipient"`
	SenderID    primitive.ObjectID `bson:"sender" json:"senderId"`
	Sender      *UserSummary       `bson:"senderUser,omitempty" json:"sender,omitempty"`
	Type        NotificationType   `bson:"type" json:"type"`
	RelatedID   primitive.ObjectID `bson:"relatedId" json:"relatedId"`
	Message     string             `bson:"message" json:"message"`
	Read        bool               `bson:"read" json:"read"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NotificationFeed is the latest notifications of a user.
type NotificationFeed struct {
	Notifications []*Notification `json:"notifications"`
	Unread        int64           `json:"unread"`
}
