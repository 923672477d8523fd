package response

import (
	"critiq/apierror"
	"critiq/logger"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Envelope is the body of every successful API response.
type Envelope struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
}

// ErrorEnvelope is the body of every failed API response.
type ErrorEnvelope struct {
	Success    bool     `json:"success"`
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	Stack      string   `json:"stack,omitempty"`
}

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

func OK(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, Envelope{Success: true, StatusCode: status, Data: data, Message: message})
}

// Error writes err as an error envelope and aborts the chain. Server errors
// are logged with their cause and reported to Sentry.
func Error(c *gin.Context, err error) {
	apiErr := apierror.As(err)
	if apiErr.Status >= 500 {
		logger.Log.Error("Request failed",
			logger.WithRequestID(c.GetString(RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", apiErr.Status),
			zap.Error(apiErr),
		)
		report(c, apiErr)
	}
	abort(c, apiErr, "")
}

// Abort writes apiErr without logging. stack is included when non-empty.
func Abort(c *gin.Context, apiErr *apierror.Error, stack string) {
	abort(c, apiErr, stack)
}

func abort(c *gin.Context, apiErr *apierror.Error, stack string) {
	details := apiErr.Errors
	if details == nil {
		details = []string{}
	}
	c.AbortWithStatusJSON(apiErr.Status, ErrorEnvelope{
		Success:    false,
		StatusCode: apiErr.Status,
		Message:    apiErr.Message,
		Errors:     details,
		Stack:      stack,
	})
}

func report(c *gin.Context, err error) {
	hub := sentry.GetHubFromContext(c.Request.Context())
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("path", c.FullPath())
		scope.SetTag("request_id", c.GetString(RequestIDKey))
		hub.CaptureException(err)
	})
}
