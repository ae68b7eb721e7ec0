package middleware

import (
	"net/http"              // HTTP status codes
	"prism/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// AdminOnlyMiddleware checks the user's role from the database on each request
func AdminOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey) // Get userID from context
		// Check if userID exists in context
		if userID == "" {
			// If not, abort with unauthorized status
			abort(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).Select("id", "role").Where("id = ?", userID).First(&user).Error; err != nil {
			// If user not found or any error, abort with forbidden status
			abort(c, http.StatusForbidden, "Admin access required")
			return
		}
		// Check if user role is admin
		if user.Role != "admin" {
			// If not admin, abort with forbidden status
			abort(c, http.StatusForbidden, "Admin access required")
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
