package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"critiq/auth"
	"critiq/cache"
	"critiq/config"
	"critiq/database"
	"critiq/handlers"
	"critiq/logger"
	"critiq/media"
	"critiq/middleware"
	"critiq/notify"
	"critiq/repository"
	"critiq/routes"
	"critiq/service"
	"critiq/websocket"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var useMemory bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Close()
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&useMemory, "memory", false, "Keep all data in memory instead of MongoDB")
	serveCmd.Flags().String("port", "", "HTTP listen port")
	bindFlag(serveCmd, "port", "port")
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(!useMemory); err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Env,
			AttachStacktrace: true,
		})
		if err != nil {
			logger.Log.Warn("Sentry disabled", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Disconnect(); err != nil {
			logger.Log.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	}()

	var feedCache *cache.Store
	var limiter middleware.Limiter = middleware.NewIPRateLimiter(cfg.RateLimit, time.Minute)
	if cfg.RedisAddr != "" {
		feedCache, err = cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Log.Warn("Redis unavailable, running without cache", zap.Error(err))
		} else {
			defer feedCache.Close()
			limiter = middleware.NewRedisRateLimiter(feedCache, cfg.RateLimit, time.Minute)
		}
	}

	uploader, err := openUploader(ctx, cfg)
	if err != nil {
		return err
	}
	images := media.NewImages(uploader, cfg.ImageMaxDimension)

	tokens := auth.NewTokens(cfg.AccessTokenSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenSecret, cfg.RefreshTokenExpiry)

	hub := websocket.NewManager(tokens)
	go hub.Start()
	defer hub.Stop()

	sinks := []notify.Sink{notify.NewRealtimeSink(hub)}
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		sinks = append(sinks, notify.NewWebPushSink(store.PushSubscriptions, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber))
	}
	if cfg.AMQPURL != "" {
		amqpSink, err := notify.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Log.Warn("AMQP unavailable, notifications stay local", zap.Error(err))
		} else {
			defer amqpSink.Close()
			sinks = append(sinks, amqpSink)
		}
	}
	dispatcher := notify.NewDispatcher(store.Notifications, store.Users, notify.Config{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
	}, sinks...)

	users := service.NewUserService(store.Users, store.Playlists, tokens, images, dispatcher)
	h := handlers.New(handlers.Services{
		Users:         users,
		Reviews:       service.NewReviewService(store, images, feedCache, dispatcher),
		Comments:      service.NewCommentService(store, dispatcher, hub, cfg.NotifyOnComment),
		Notifications: service.NewNotificationService(store.Notifications),
		Playlists:     service.NewPlaylistService(store),
		Push:          service.NewPushService(store.PushSubscriptions, cfg.VAPIDPublicKey),
	}, handlers.Cookies{
		Secure:        cfg.CookieSecure,
		AccessMaxAge:  tokens.AccessExpiry(),
		RefreshMaxAge: tokens.RefreshExpiry(),
	})

	router := routes.SetupRouter(routes.Deps{
		Handler:     h,
		Auth:        users,
		Limiter:     limiter,
		Hub:         hub,
		CORSOrigins: cfg.CORSOrigins,
		ExposeStack: !cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
	}

	logger.Log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Forced shutdown", zap.Error(err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Log.Warn("Pending notifications dropped", zap.Error(err))
	}
	logger.Log.Info("Server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	if useMemory {
		logger.Log.Warn("Using in-memory store, data is lost on exit")
		return repository.NewMemoryStore(), nil
	}

	if err := database.ConnectWithRetry(ctx, cfg.MongoURI, cfg.MongoDatabase, 3, 2*time.Second); err != nil {
		return nil, err
	}
	if err := database.EnsureIndexes(ctx, database.DB); err != nil {
		logger.Log.Warn("Index creation failed", zap.Error(err))
	}
	return repository.NewMongoStore(database.Client, database.DB, cfg.MongoTransactions), nil
}

func openUploader(ctx context.Context, cfg *config.Config) (media.Uploader, error) {
	switch cfg.MediaBackend {
	case "cloudinary":
		if cfg.CloudinaryURL == "" {
			logger.Log.Warn("CLOUDINARY_URL not set, uploads disabled")
			return media.DisabledUploader{}, nil
		}
		return media.NewCloudinaryUploader(cfg.CloudinaryURL)
	case "s3":
		return media.NewS3Uploader(ctx, cfg.AWSRegion, cfg.AWSBucket, cfg.CDNBaseURL)
	default:
		return media.DisabledUploader{}, nil
	}
}
