package middleware

import "github.com/gin-gonic/gin" // Gin web framework

// abort stops the chain with the API's failure envelope
func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
