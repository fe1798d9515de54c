package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const SessionKey = "session_id"

// SessionMiddleware requires a valid session token and stores its session
// id in the gin context.
func SessionMiddleware(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid header format"})
			return
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(SessionKey, claims.SessionID)
		c.Next()
	}
}

// SessionID returns the id set by SessionMiddleware.
func SessionID(c *gin.Context) string {
	return c.GetString(SessionKey)
}

// InternalMiddleware guards admin endpoints with a shared secret header.
func InternalMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			log.Println("[pricing-auth] CRITICAL: INTERNAL_SECRET is not set, blocking request")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Configuration missing"})
			return
		}
		if c.GetHeader("X-Internal-Secret") != secret {
			log.Printf("[pricing-auth] WARN unauthorized internal access attempt path=%s", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid internal key"})
			return
		}
		c.Next()
	}
}
