package handlers

import (
	"net/http"

	"critiq/models"
	"critiq/response"
	"critiq/service"

	"github.com/gin-gonic/gin"
)

type PostRequest struct {
	PostID string `json:"postId" form:"postId"`
}

func (h *Handler) UploadReview(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := withTimeout(c, uploadTimeout)
	defer cancel()

	image, err := formFile(c, "image")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile(image)

	in := service.ReviewInput{
		Movie:   c.PostForm("movie"),
		Rating:  c.PostForm("rating"),
		Comment: c.PostForm("comment"),
		Mood:    c.PostForm("mood"),
		Tags:    append(c.PostFormArray("tags"), c.PostFormArray("tags[]")...),
		Spoiler: c.PostForm("spoiler"),
	}
	if image != nil {
		in.Image = image
	}

	review, err := h.reviews.Upload(ctx, user.ID, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, review, "Review uploaded successfully")
}

func (h *Handler) DeleteReview(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	if err := h.reviews.Delete(ctx, user.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, nil, "Review deleted successfully")
}

// GetReviews is the public feed, optionally filtered by tag and mood.
func (h *Handler) GetReviews(c *gin.Context) {
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	reviews, err := h.reviews.List(ctx, models.ReviewFilter{Tag: c.Query("tag"), Mood: c.Query("mood")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, reviews, "Reviews fetched successfully")
}

func (h *Handler) GetUserReviews(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	reviews, err := h.reviews.ListByUser(ctx, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, reviews, "User reviews fetched successfully")
}

func bindPost(c *gin.Context) (string, bool) {
	var req PostRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, badBody(err))
		return "", false
	}
	return req.PostID, true
}

func (h *Handler) LikePost(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	postID, ok := bindPost(c)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	count, err := h.reviews.ToggleLike(ctx, user, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"like": count}, "Post like toggled successfully")
}

func (h *Handler) IsLike(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	postID, ok := bindPost(c)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	state, err := h.reviews.LikeStatus(ctx, user.ID, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, state, "Like status checked successfully")
}
