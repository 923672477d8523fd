package handlers

import (
	"net/http"

	"critiq/response"
	"critiq/service"

	"github.com/gin-gonic/gin"
)

type FollowRequest struct {
	FollowedID string `json:"followedId" form:"followedId"`
}

type UpdateProfileRequest struct {
	Username *string `json:"username"`
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
	Bio      *string `json:"bio"`
}

func (h *Handler) ProfileView(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	profile, err := h.users.Profile(ctx, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, profile, "User profile retrieved successfully")
}

// GetUser returns the public profile of another user.
func (h *Handler) GetUser(c *gin.Context) {
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	profile, err := h.users.PublicProfile(ctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, profile, "User profile retrieved successfully")
}

func postFormPtr(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok {
		return &v
	}
	return nil
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := withTimeout(c, uploadTimeout)
	defer cancel()

	var in service.UpdateInput
	if c.ContentType() == gin.MIMEJSON {
		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, badBody(err))
			return
		}
		in = service.UpdateInput{Username: req.Username, FullName: req.FullName, Email: req.Email, Bio: req.Bio}
	} else {
		avatar, err := formFile(c, "avatar")
		if err != nil {
			response.Error(c, err)
			return
		}
		defer closeFile(avatar)
		cover, err := formFile(c, "coverImage")
		if err != nil {
			response.Error(c, err)
			return
		}
		defer closeFile(cover)

		in = service.UpdateInput{
			Username: postFormPtr(c, "username"),
			FullName: postFormPtr(c, "fullName"),
			Email:    postFormPtr(c, "email"),
			Bio:      postFormPtr(c, "bio"),
		}
		if avatar != nil {
			in.Avatar = avatar
		}
		if cover != nil {
			in.CoverImage = cover
		}
	}

	updated, err := h.users.Update(ctx, user.ID, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, updated, "Profile updated successfully")
}

func bindFollow(c *gin.Context) (string, bool) {
	var req FollowRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, badBody(err))
		return "", false
	}
	return req.FollowedID, true
}

// ToggleFollow serves both followerAndFollowing and toggleFollow.
func (h *Handler) ToggleFollow(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	target, ok := bindFollow(c)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	state, err := h.users.ToggleFollow(ctx, user.ID, target)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, state, "Successfully toggled follow status")
}

func (h *Handler) CheckFollow(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	target, ok := bindFollow(c)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	state, err := h.users.CheckFollow(ctx, user.ID, target)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, state, "Follow status checked successfully")
}

func (h *Handler) setFollowing(c *gin.Context, follow bool) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	state, err := h.users.SetFollowing(ctx, user.ID, c.Param("id"), follow)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, state, "Follow status updated")
}

func (h *Handler) Follow(c *gin.Context)   { h.setFollowing(c, true) }
func (h *Handler) Unfollow(c *gin.Context) { h.setFollowing(c, false) }

func (h *Handler) GetFollowersAndFollowing(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	conns, err := h.users.Connections(ctx, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, conns, "Followers and following retrieved successfully")
}
