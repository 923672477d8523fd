package handlers

import (
	"net/http"

	"critiq/apierror"
	"critiq/response"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
)

type SubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (h *Handler) GetVapidPublicKey(c *gin.Context) {
	key := h.push.PublicKey()
	if key == "" {
		response.Error(c, apierror.NotFound("VAPID public key"))
		return
	}
	response.OK(c, http.StatusOK, gin.H{"publicKey": key}, "VAPID public key retrieved successfully")
}

func (h *Handler) SubscribePush(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, badBody(err))
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	sub := webpush.Subscription{
		Endpoint: req.Endpoint,
		Keys:     webpush.Keys{P256dh: req.Keys.P256dh, Auth: req.Keys.Auth},
	}
	if err := h.push.Subscribe(ctx, user.ID, sub); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"userId": user.ID.Hex()}, "Push subscription saved successfully")
}
