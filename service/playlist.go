package service

import (
	"context"
	"strings"

	"critiq/apierror"
	"critiq/models"
	"critiq/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PlaylistService struct {
	playlists repository.PlaylistRepository
	users     repository.UserRepository
}

func NewPlaylistService(store *repository.Store) *PlaylistService {
	return &PlaylistService{playlists: store.Playlists, users: store.Users}
}

// SavedPlaylist is the result of saving a playlist.
type SavedPlaylist struct {
	Playlist       *models.Playlist `json:"playlist"`
	TotalPlaylists int              `json:"totalPlaylists"`
}

func (s *PlaylistService) Save(ctx context.Context, userID primitive.ObjectID, name string, movies []models.Movie) (*SavedPlaylist, error) {
	name = strings.TrimSpace(name)
	if name == "" || movies == nil {
		return nil, apierror.BadRequest("All fields are required")
	}

	playlist := &models.Playlist{Name: name, Movies: movies, UserID: userID}
	if err := s.playlists.Create(ctx, playlist); err != nil {
		return nil, storeErr(err, "Playlist")
	}

	total, err := s.users.AddPlaylist(ctx, userID, playlist.ID)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	return &SavedPlaylist{Playlist: playlist, TotalPlaylists: total}, nil
}

func (s *PlaylistService) List(ctx context.Context, userID primitive.ObjectID) ([]*models.Playlist, error) {
	playlists, err := s.playlists.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "Playlist")
	}
	if playlists == nil {
		playlists = []*models.Playlist{}
	}
	return playlists, nil
}
