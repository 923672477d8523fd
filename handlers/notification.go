package handlers

import (
	"net/http"

	"critiq/response"

	"github.com/gin-gonic/gin"
)

type MarkReadRequest struct {
	IDs []string `json:"ids"`
}

func (h *Handler) GetNotifications(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	feed, err := h.notifications.Feed(ctx, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, feed, "Notifications retrieved successfully")
}

// MarkNotificationsRead marks the listed notifications read, or all of them
// when no ids are sent.
func (h *Handler) MarkNotificationsRead(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	var req MarkReadRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, badBody(err))
			return
		}
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	n, err := h.notifications.MarkRead(ctx, user.ID, req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"updated": n}, "Notifications marked as read")
}
