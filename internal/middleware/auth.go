package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/puttlab/backend/internal/utils"
	"github.com/puttlab/backend/pkg/response"
)

const ContextUserID = "user_id"

// AuthRequired verifies the bearer access token and stores its user id in
// the context. Expired tokens get token_expired so clients know to refresh.
func AuthRequired(signer *utils.TokenSigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, response.NewUnauthorized(response.CodeUnauthorized, "Authorization header required"))
			return
		}

		// "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Abort(c, response.NewUnauthorized(response.CodeUnauthorized, "Invalid authorization header format"))
			return
		}

		claims, err := signer.ParseAccess(parts[1])
		if errors.Is(err, utils.ErrTokenExpired) {
			response.Abort(c, response.NewUnauthorized(response.CodeTokenExpired, "Access token expired"))
			return
		}
		if err != nil {
			response.Abort(c, response.NewUnauthorized(response.CodeUnauthorized, "Invalid access token"))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
