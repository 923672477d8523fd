package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the server.
type Config struct {
	Port string
	Env  string

	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool

	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
	CookieSecure       bool

	CORSOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MediaBackend      string
	CloudinaryURL     string
	AWSRegion         string
	AWSBucket         string
	CDNBaseURL        string
	ImageMaxDimension int

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	AMQPURL      string
	AMQPExchange string

	SentryDSN string
	LogLevel  string
	LogFile   string

	RateLimit       int
	NotifyWorkers   int
	NotifyQueueSize int
	NotifyOnComment bool
}

var defaults = map[string]interface{}{
	"port":                 "8080",
	"env":                  "development",
	"mongo_database":       "critiq",
	"mongo_transactions":   false,
	"access_token_expiry":  "15m",
	"refresh_token_expiry": "240h",
	"cookie_secure":        true,
	"cors_origins":         "http://localhost:5173",
	"redis_db":             0,
	"media_backend":        "cloudinary",
	"image_max_dimension":  1600,
	"vapid_subscriber":     "mailto:admin@critiq.app",
	"amqp_exchange":        "critiq.notifications",
	"log_level":            "info",
	"log_file":             "server.log",
	"rate_limit":           120,
	"notify_workers":       2,
	"notify_queue_size":    256,
	"notify_on_comment":    false,
}

// NewViper loads .env (if present) and returns a viper instance reading the
// environment with the server defaults applied.
func NewViper() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return v
}

// Load reads the configuration out of v.
func Load(v *viper.Viper) *Config {
	return &Config{
		Port: v.GetString("port"),
		Env:  strings.ToLower(v.GetString("env")),

		MongoURI:          v.GetString("mongodb_uri"),
		MongoDatabase:     v.GetString("mongo_database"),
		MongoTransactions: v.GetBool("mongo_transactions"),

		AccessTokenSecret:  v.GetString("access_token_secret"),
		AccessTokenExpiry:  v.GetDuration("access_token_expiry"),
		RefreshTokenSecret: v.GetString("refresh_token_secret"),
		RefreshTokenExpiry: v.GetDuration("refresh_token_expiry"),
		CookieSecure:       v.GetBool("cookie_secure"),

		CORSOrigins: splitList(v.GetString("cors_origins")),

		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),

		MediaBackend:      strings.ToLower(v.GetString("media_backend")),
		CloudinaryURL:     v.GetString("cloudinary_url"),
		AWSRegion:         v.GetString("aws_region"),
		AWSBucket:         v.GetString("aws_bucket"),
		CDNBaseURL:        v.GetString("cdn_base_url"),
		ImageMaxDimension: v.GetInt("image_max_dimension"),

		VAPIDPublicKey:  v.GetString("vapid_public_key"),
		VAPIDPrivateKey: v.GetString("vapid_private_key"),
		VAPIDSubscriber: v.GetString("vapid_subscriber"),

		AMQPURL:      v.GetString("amqp_url"),
		AMQPExchange: v.GetString("amqp_exchange"),

		SentryDSN: v.GetString("sentry_dsn"),
		LogLevel:  v.GetString("log_level"),
		LogFile:   v.GetString("log_file"),

		RateLimit:       v.GetInt("rate_limit"),
		NotifyWorkers:   v.GetInt("notify_workers"),
		NotifyQueueSize: v.GetInt("notify_queue_size"),
		NotifyOnComment: v.GetBool("notify_on_comment"),
	}
}

// IsProduction reports whether the server runs in release mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks the settings required to serve traffic. requireMongo is
// false when the in-memory store is used.
func (c *Config) Validate(requireMongo bool) error {
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
	}
	if requireMongo && c.MongoURI == "" {
		return errors.New("MONGODB_URI must be set")
	}
	if c.AccessTokenExpiry <= 0 || c.RefreshTokenExpiry <= 0 {
		return errors.New("token expiries must be positive durations")
	}
	switch c.MediaBackend {
	case "cloudinary", "s3", "none":
	default:
		return errors.New("MEDIA_BACKEND must be one of cloudinary, s3, none")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
