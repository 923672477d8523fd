package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxReviewComment = 1000
)

type Review struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Movie     string               `bson:"movie" json:"movie"`
	Image     string               `bson:"image" json:"image"`
	Rating    int                  `bson:"rating" json:"rating"`
	Comment   string               `bson:"comment" json:"comment"`
	Tags      []string             `bson:"tags" json:"tags"`
	Mood      string               `bson:"mood" json:"mood"`
	Spoiler   bool                 `bson:"spoiler" json:"spoiler"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	UserID    primitive.ObjectID   `bson:"user" json:"userId"`
	Author    *UserSummary         `bson:"author,omitempty" json:"user,omitempty"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// LikedBy reports whether the user has liked the review.
func (r *Review) LikedBy(userID primitive.ObjectID) bool {
	return containsID(r.Likes, userID)
}

// ReviewFilter narrows a review listing. Zero values match everything.
type ReviewFilter struct {
	UserID primitive.ObjectID
	Tag    string
	Mood   string
}

// LikeState is the like status of a review or comment for one user.
type LikeState struct {
	IsLiked bool `json:"isLiked"`
	Count   int  `json:"count"`
}
