package middleware

import (
	"github.com/gin-gonic/gin"
)

// AnonymousCaller is the identity of every request when AUTH_MODE=none.
const AnonymousCaller = "anonymous"

// NoAuth is a pass-through middleware for when AUTH_MODE=none.
// It allows all requests without authentication.
func NoAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CallerIDKey, AnonymousCaller)
		c.Next()
	}
}
