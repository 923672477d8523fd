package handlers

import (
	"net/http"

	"critiq/models"
	"critiq/response"

	"github.com/gin-gonic/gin"
)

type SavePlaylistRequest struct {
	Name   string         `json:"name"`
	Movies []models.Movie `json:"movies"`
}

func (h *Handler) SavePlaylist(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	var req SavePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, badBody(err))
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	saved, err := h.playlists.Save(ctx, user.ID, req.Name, req.Movies)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, saved, "Playlist created successfully")
}

func (h *Handler) GetPlaylists(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	playlists, err := h.playlists.List(ctx, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, playlists, "playlists found successfully")
}
