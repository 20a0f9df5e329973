package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"solitaire-ledger/internal/auth"
)

const identityContextKey = "identity"

func IdentityFromContext(c *gin.Context) (string, bool) {
	identity, ok := c.Get(identityContextKey)
	if !ok {
		return "", false
	}
	value, ok := identity.(string)
	return value, ok && value != ""
}

func RequireAuth(cfg auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			return
		}

		claims, err := auth.VerifyToken(parts[1], cfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			return
		}

		c.Set(identityContextKey, claims.Identity)
		c.Next()
	}
}
