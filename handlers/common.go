package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"critiq/apierror"
	"critiq/middleware"
	"critiq/models"
	"critiq/response"
	"critiq/service"

	"github.com/gin-gonic/gin"
)

const (
	requestTimeout = 10 * time.Second
	uploadTimeout  = 30 * time.Second
)

// Services are the domain services the handlers call.
type Services struct {
	Users         *service.UserService
	Reviews       *service.ReviewService
	Comments      *service.CommentService
	Notifications *service.NotificationService
	Playlists     *service.PlaylistService
	Push          *service.PushService
}

// Cookies configures the auth cookies.
type Cookies struct {
	Secure        bool
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

type Handler struct {
	users         *service.UserService
	reviews       *service.ReviewService
	comments      *service.CommentService
	notifications *service.NotificationService
	playlists     *service.PlaylistService
	push          *service.PushService
	cookies       Cookies
}

func New(s Services, cookies Cookies) *Handler {
	return &Handler{
		users:         s.Users,
		reviews:       s.Reviews,
		comments:      s.Comments,
		notifications: s.Notifications,
		playlists:     s.Playlists,
		push:          s.Push,
		cookies:       cookies,
	}
}

func withTimeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}

// currentUser returns the authenticated user. Routes using it are behind
// JWTAuthMiddleware.
func currentUser(c *gin.Context) *models.User {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Abort(c, apierror.Unauthorized(""), "")
	}
	return user
}

// formFile opens an optional multipart file. A missing file returns nil.
func formFile(c *gin.Context, name string) (multipart.File, error) {
	header, err := c.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apierror.BadRequest("Invalid multipart form").Wrap(err)
	}
	return header.Open()
}

func badBody(err error) error {
	return apierror.BadRequest("Invalid request body").Wrap(err)
}

func closeFile(f multipart.File) {
	if f != nil {
		f.Close()
	}
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Critiq API is running",
		"time":    time.Now().Unix(),
	})
}

// NoRoute answers unknown paths with the error envelope.
func NoRoute(c *gin.Context) {
	response.Abort(c, apierror.New(http.StatusNotFound, "Endpoint not found"), "")
}
