package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tally/internal/uuid"
)

const userIDKey = "userID"

// Identity requires a valid X-User-ID header and stores it on the context.
// Authentication itself happens upstream (gateway or session layer); this
// service only needs a trusted caller identity.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if !uuid.IsValid(userID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": gin.H{"code": "UNAUTHORIZED", "message": "Missing or invalid X-User-ID header"}})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}
