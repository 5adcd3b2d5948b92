package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// WithUser takes the caller id from the X-User-Id header without verifying it.
// Requests without the header stay anonymous and can only read.
// Use this ONLY for development/testing.
func WithUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader("X-User-Id")); uid != "" {
			c.Set(CtxFirebaseUID, uid)
		}
		c.Next()
	}
}
