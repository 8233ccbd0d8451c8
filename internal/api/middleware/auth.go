package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"styleswap/internal/api/jwt"
)

func bearer(c *gin.Context) string {
	token := c.GetHeader("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
}

// Auth admits requests carrying a valid Supabase access token and stores the
// caller under "identity" and the raw token under "access_token".
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "jwt missing"})
			return
		}
		identity, err := jwt.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid jwt"})
			return
		}
		c.Set("identity", identity)
		c.Set("access_token", token)
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "jwt missing"})
			return
		}
		username, err := jwt.ValidateAdminToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid jwt"})
			return
		}
		c.Set("admin", username)
		c.Next()
	}
}
