package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// UserSummary is a populated user reference.
type UserSummary struct {
	ID       primitive.ObjectID `bson:"_id" json:"_id"`
	Username string             `bson:"username" json:"username"`
	FullName string             `bson:"fullName,omitempty" json:"fullName,omitempty"`
	Avatar   string             `bson:"avatar" json:"avatar"`
}

// PlaylistSummary is a playlist as shown on a profile.
type PlaylistSummary struct {
	ID     primitive.ObjectID `json:"_id"`
	Name   string             `json:"name"`
	Movies []Movie            `json:"movies"`
}

// ProfileUser is a user with its playlists populated.
type ProfileUser struct {
	*User
	Playlists []PlaylistSummary `json:"playlists"`
}

// Profile is the profile view with relation counts.
type Profile struct {
	User      *ProfileUser `json:"user"`
	Following int          `json:"following"`
	Follower  int          `json:"follower"`
	Playlists int          `json:"playlists"`
}

// FollowState is the result of a follow mutation or check.
type FollowState struct {
	IsFollowing bool `json:"isFollowing"`
	Followers   int  `json:"followers"`
	Following   int  `json:"following"`
}

// Connections lists the populated followers and following of a user.
type Connections struct {
	Followers []*UserSummary `json:"followers"`
	Following []*UserSummary `json:"following"`
}
