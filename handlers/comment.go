package handlers

import (
	"net/http"

	"critiq/response"

	"github.com/gin-gonic/gin"
)

type CreateCommentRequest struct {
	Content string `json:"content" form:"content"`
	PostID  string `json:"postId" form:"postId"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" form:"content"`
}

func (h *Handler) CreateComment(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	var req CreateCommentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, badBody(err))
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	comment, err := h.comments.Create(ctx, user, req.Content, req.PostID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, comment, "Comment created successfully")
}

// GetPostComments reads the review id from the path or the postId query.
func (h *Handler) GetPostComments(c *gin.Context) {
	postID := c.Param("postId")
	if postID == "" {
		postID = c.Query("postId")
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	comments, err := h.comments.List(ctx, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, comments, "Comments fetched successfully")
}

func (h *Handler) UpdateComment(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	var req UpdateCommentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, badBody(err))
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	comment, err := h.comments.Update(ctx, user, c.Param("commentId"), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, comment, "Comment updated successfully")
}

func (h *Handler) DeleteComment(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	if err := h.comments.Delete(ctx, user.ID, c.Param("commentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{}, "Comment deleted successfully")
}

func (h *Handler) LikeComment(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	state, err := h.comments.ToggleLike(ctx, user.ID, c.Param("commentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, state, "Comment like toggled successfully")
}
