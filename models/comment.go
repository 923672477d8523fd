package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Content   string               `bson:"content" json:"content"`
	PostID    primitive.ObjectID   `bson:"post" json:"post"`
	UserID    primitive.ObjectID   `bson:"user" json:"userId"`
	Author    *UserSummary         `bson:"author,omitempty" json:"user,omitempty"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// LikedBy reports whether userID is in the comment's likes.
func (c *Comment) LikedBy(userID primitive.ObjectID) bool {
	return containsID(c.Likes, userID)
}
