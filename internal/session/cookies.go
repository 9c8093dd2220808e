package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Cookie and header names are part of the wire contract; the UI reads
// csrf-token and echoes it in x-csrf-token on mutating requests.
const (
	CookieSession = "session"
	CookieRefresh = "refreshToken"
	CookieCSRF    = "csrf-token"

	HeaderCSRF = "x-csrf-token"

	// HeaderStaleSession carries the rejected token back on a denial so
	// the client can distinguish "wrong role" from "no session". This is
	// deliberate, not a leak: the client already holds the token.
	HeaderStaleSession = "X-Session-Token"
)

// CookiePolicy is the single source of truth for auth cookie flags, so
// login, refresh and logout always emit matching cookies. A deletion that
// doesn't match the original flags would not actually clear anything.
type CookiePolicy struct {
	// Secure is set in production; localhost over http keeps it off.
	Secure bool
}

func (p CookiePolicy) Session(value string, ttl time.Duration) *http.Cookie {
	return p.build(CookieSession, value, ttl, true)
}

func (p CookiePolicy) Refresh(value string, ttl time.Duration) *http.Cookie {
	return p.build(CookieRefresh, value, ttl, true)
}

// CSRF is readable by client script: the double-submit pattern needs the
// page to copy the cookie value into a request header.
func (p CookiePolicy) CSRF(value string, ttl time.Duration) *http.Cookie {
	return p.build(CookieCSRF, value, ttl, false)
}

func (p CookiePolicy) build(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().UTC().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		Secure:   p.Secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	}
}

// Deletion returns a cookie that expires immediately. Flags mirror the
// session cookies so the user agent overwrites them.
func (p CookiePolicy) Deletion(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   p.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Apply writes cookies onto the outgoing response.
func (p CookiePolicy) Apply(c *gin.Context, cookies ...*http.Cookie) {
	for _, ck := range cookies {
		http.SetCookie(c.Writer, ck)
	}
}

// ClearAuth removes both auth cookies. Callers must never clear one
// without the other; partial state is treated as logged out anyway.
func (p CookiePolicy) ClearAuth(c *gin.Context) {
	p.Apply(c, p.Deletion(CookieSession), p.Deletion(CookieRefresh))
}
