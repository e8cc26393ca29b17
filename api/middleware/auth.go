package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const UserIDKey = "user_id"

const testTokenPrefix = "test_token_"

// HeaderAuth - аутентификация по заголовкам, без проверки учетных данных.
// Поддерживает два варианта:
// 1. X-User-ID: N
// 2. Authorization: Bearer test_token_N
func HeaderAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("X-User-ID"); header != "" {
			userID, err := strconv.ParseInt(header, 10, 64)
			if err != nil || userID <= 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid X-User-ID format"})
				return
			}
			c.Set(UserIDKey, userID)
			c.Next()
			return
		}

		if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
			if raw, ok := strings.CutPrefix(token, testTokenPrefix); ok {
				userID, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || userID <= 0 {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid test token format"})
					return
				}
				c.Set(UserIDKey, userID)
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required: provide X-User-ID header or Authorization Bearer token"})
	}
}

// UserID возвращает пользователя, установленного HeaderAuth
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
