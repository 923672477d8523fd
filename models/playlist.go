package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Movie is a movie reference saved in a playlist.
type Movie struct {
	ImdbID string `bson:"imdbID" json:"imdbID"`
	Title  string `bson:"Title" json:"Title"`
	Year   string `bson:"Year" json:"Year"`
	Poster string `bson:"Poster" json:"Poster"`
}

type Playlist struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Movies    []Movie            `bson:"movies" json:"movies"`
	UserID    primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
