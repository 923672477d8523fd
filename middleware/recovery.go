package middleware

import (
	"fmt"
	"runtime/debug"

	"critiq/apierror"
	"critiq/logger"
	"critiq/response"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SentryMiddleware attaches a per-request Sentry hub to the request context.
func SentryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(c.Request)
		c.Request = c.Request.WithContext(sentry.SetHubOnContext(c.Request.Context(), hub))
		c.Next()
	}
}

// RecoveryMiddleware turns panics into the 500 error envelope. With
// exposeStack the stack trace is included in the body.
func RecoveryMiddleware(exposeStack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Log.Error("Panic recovered",
					logger.WithRequestID(c.GetString(response.RequestIDKey)),
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.String("stack", stack),
				)

				hub := sentry.GetHubFromContext(c.Request.Context())
				if hub == nil {
					hub = sentry.CurrentHub()
				}
				hub.Recover(r)

				apiErr := apierror.Internal("", fmt.Errorf("panic: %v", r))
				if !exposeStack {
					stack = ""
				}
				response.Abort(c, apiErr, stack)
			}
		}()
		c.Next()
	}
}
