package session

import (
	"net/http"
	"time"

	"lms-edge/internal/token"

	"github.com/gin-gonic/gin"
)

// Authenticate fully verifies the session cookie and places the caller's
// identity on the request context for downstream handlers. Unlike RoleGate
// this is a trust-boundary check: routes behind it act on the identity
// (logout-all, permission resolution), so a peek is not enough.
func Authenticate(codec *token.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(CookieSession)
		if err != nil || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		claims, err := codec.VerifyAccess(raw, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		c.Request = c.Request.WithContext(token.WithIdentity(c.Request.Context(), claims.Identity()))
		c.Next()
	}
}
