package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CallerIDKey is the gin context key holding the caller identity used for logging and
// rate limiting.
const CallerIDKey = "caller_id"

// GatewayAuth trusts caller info from gateway headers (X-User-ID, X-User-Email, X-User-Role).
// This is used when the API runs behind a gateway that already authenticated the caller.
//
// When AUTH_MODE=gateway, the API trusts these headers unconditionally.
// This should ONLY be used with proper network isolation.
func GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":      "Missing X-User-ID header from gateway",
				"error_type": "unauthorized",
			})
			c.Abort()
			return
		}

		c.Set(CallerIDKey, userID)
		c.Set("user_email", c.GetHeader("X-User-Email"))
		c.Set("user_role", c.GetHeader("X-User-Role"))

		if apiKeyID := c.GetHeader("X-API-Key-ID"); apiKeyID != "" {
			c.Set("api_key_id", apiKeyID)
		}

		c.Next()
	}
}

// GetCallerID retrieves the caller identity set by GatewayAuth or NoAuth.
func GetCallerID(c *gin.Context) (string, bool) {
	id := c.GetString(CallerIDKey)
	return id, id != ""
}
