package httpapi

import (
	"crypto/subtle"
	"net/http"

	"lms-edge/internal/session"

	"github.com/gin-gonic/gin"
)

var mutatingMethods = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// CSRF enforces the double-submit pattern on mutating methods: the
// non-httpOnly csrf-token cookie must match the x-csrf-token header the
// page copied it into. Cross-site requests can send the cookie but cannot
// read it, so they cannot produce the header.
//
// Login and refresh are wired without this middleware: no token exists
// before a session does.
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, mutating := mutatingMethods[c.Request.Method]; !mutating {
			c.Next()
			return
		}

		cookie, err := c.Cookie(session.CookieCSRF)
		header := c.GetHeader(session.HeaderCSRF)
		if err != nil || cookie == "" || header == "" ||
			subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "csrf token mismatch"})
			return
		}
		c.Next()
	}
}
