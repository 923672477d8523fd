package middleware

import (
	"context"
	"net/http"
	"strings"

	"critiq/apierror"
	"critiq/models"
	"critiq/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by Auth.
const (
	UserKey   = "user"
	UserIDKey = "userId"
)

// Authenticator resolves an access token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AccessToken returns the token from the accessToken cookie or the
// Authorization header.
func AccessToken(c *gin.Context) string {
	if token, err := c.Cookie("accessToken"); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func JWTAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip middleware for OPTIONS requests (CORS preflight)
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token := AccessToken(c)
		if token == "" {
			response.Abort(c, apierror.Unauthorized(""), "")
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Set(UserKey, user)
		c.Set(UserIDKey, user.ID.Hex())
		c.Next()
	}
}

// CurrentUser returns the user set by JWTAuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(UserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
