package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"foliogen/internal/auth"
)

const clerkIDKey = "clerkID"

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验会话令牌并将外部用户 ID 注入上下文。
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		rawToken := parts[1]
		if strings.TrimSpace(rawToken) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(clerkIDKey, claims.Subject)
		c.Next()
	}
}

// ClerkIDFromContext 取出鉴权中间件写入的外部用户 ID。
func ClerkIDFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(clerkIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
