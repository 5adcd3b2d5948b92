package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxFirebaseUID = "firebase_uid"

// CallerID returns the authenticated caller id, or "" for anonymous requests
func CallerID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}
