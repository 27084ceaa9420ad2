// README: Caller identity middleware. The upstream gateway authenticates users and forwards the uid.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carries the authenticated uid set by the gateway.
const UserIDHeader = "X-User-ID"

const callerUIDKey = "caller_uid"

// Auth rejects requests without a usable caller uid and stores it for handlers.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader(UserIDHeader)
		if !validUID(uid) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + UserIDHeader})
			return
		}
		c.Set(callerUIDKey, uid)
		c.Next()
	}
}

// CallerUID returns the uid stored by Auth, or "" on unauthenticated routes.
func CallerUID(c *gin.Context) string {
	return c.GetString(callerUIDKey)
}

func validUID(v string) bool {
	if v == "" || len(v) > 128 {
		return false
	}
	for _, c := range v {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c == '-' || c == '_' || c == '.' || c == ':' || c == '@':
		default:
			return false
		}
	}
	return true
}
