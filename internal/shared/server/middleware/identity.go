package middleware

import (
	"github.com/gin-gonic/gin"
)

const (
	userIDKey    = "userId"
	objectKeyKey = "objectKey"
)

// SetIdentity records the resolved caller on the request context so logging
// and error responses can report it.
func SetIdentity(c *gin.Context, userID string) {
	c.Set(userIDKey, userID)
}

// UserIDFromContext fetches the user ID recorded by SetIdentity.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// SetObjectKey records the storage key a request wrote, for the request log.
func SetObjectKey(c *gin.Context, key string) {
	c.Set(objectKeyKey, key)
}

// ObjectKeyFromContext fetches the key recorded by SetObjectKey.
func ObjectKeyFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(objectKeyKey)
}
