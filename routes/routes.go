package routes

import (
	"time"

	"critiq/handlers"
	"critiq/middleware"
	"critiq/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the router needs.
type Deps struct {
	Handler     *handlers.Handler
	Auth        middleware.Authenticator
	Limiter     middleware.Limiter
	Hub         *websocket.Manager
	CORSOrigins []string
	ExposeStack bool
}

func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 10 << 20

	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.SentryMiddleware(),
		middleware.RecoveryMiddleware(d.ExposeStack),
		middleware.GinLoggerMiddleware(),
		middleware.MetricsMiddleware(),
	)

	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if d.Hub != nil {
		router.GET("/ws", func(c *gin.Context) {
			websocket.WebSocketHandler(d.Hub)(c.Writer, c.Request)
		})
	}

	h := d.Handler
	auth := middleware.JWTAuthMiddleware(d.Auth)

	api := router.Group("/api/v1")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	if d.Limiter != nil {
		api.Use(middleware.RateLimitMiddleware(d.Limiter))
	}

	users := api.Group("/users")
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.POST("/refresh-token", h.RefreshToken)
	users.POST("/logout", auth, h.Logout)
	users.GET("/profileView", auth, h.ProfileView)
	users.POST("/followerAndFollowing", auth, h.ToggleFollow)
	users.POST("/toggleFollow", auth, h.ToggleFollow)
	users.GET("/getFollowersAndFollowing", auth, h.GetFollowersAndFollowing)
	users.POST("/checkFollow", auth, h.CheckFollow)
	users.POST("/updateprofile", auth, h.UpdateProfile)
	users.PATCH("/updateprofile", auth, h.UpdateProfile)
	users.GET("/:id", auth, h.GetUser)
	users.PUT("/:id/follow", auth, h.Follow)
	users.DELETE("/:id/follow", auth, h.Unfollow)

	reviews := api.Group("/reviews")
	reviews.GET("/getReviews", h.GetReviews)
	reviews.GET("/getUserReviews", auth, h.GetUserReviews)
	reviews.POST("/reviewUpload", auth, h.UploadReview)
	reviews.DELETE("/deleteReview/:id", auth, h.DeleteReview)

	comments := api.Group("/comment", auth)
	comments.POST("/createComment", h.CreateComment)
	comments.GET("", h.GetPostComments)
	comments.GET("/:postId", h.GetPostComments)
	comments.PATCH("/:commentId", h.UpdateComment)
	comments.DELETE("/:commentId", h.DeleteComment)
	comments.POST("/:commentId/like", h.LikeComment)

	notifications := api.Group("/notification", auth)
	notifications.POST("/isLike", h.IsLike)
	notifications.POST("/likeNotification", h.LikePost)
	notifications.GET("/getNotification", h.GetNotifications)
	notifications.PATCH("/read", h.MarkNotificationsRead)

	playlists := api.Group("/playlist", auth)
	playlists.POST("/savePlaylist", h.SavePlaylist)
	playlists.GET("/getPlaylist", h.GetPlaylists)

	push := api.Group("/push")
	push.GET("/vapid-public-key", h.GetVapidPublicKey)
	push.POST("/subscribe", auth, h.SubscribePush)

	router.NoRoute(handlers.NoRoute)

	return router
}
