package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // Header parsing

	"prism/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// UserIDKey is the gin context key holding the authenticated account id
const UserIDKey = "userID"

const bearerPrefix = "bearer "

// bearerToken extracts the token from an Authorization header, ignoring scheme case
func bearerToken(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

// JWTAuthMiddleware resolves the calling account from its bearer token
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}
		claims, err := utils.ParseJWT(token, secret)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		c.Set(UserIDKey, claims.AccountID()) // Subject of the token
		c.Next()
	}
}
