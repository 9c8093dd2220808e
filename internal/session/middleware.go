package session

import (
	"net/http"
	"time"

	"lms-edge/internal/roles"
	"lms-edge/internal/token"
	"lms-edge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RefreshWindow is how close to expiry an access token must be before the
// middleware rotates it transparently.
const RefreshWindow = 5 * time.Minute

// GateConfig wires the role-gating middleware.
type GateConfig struct {
	Policy    CookiePolicy
	Codec     *token.Codec
	Refresher *Refresher

	// Disabled is the E2E escape hatch. Config validation rejects it in
	// production; when on, every bypassed request is logged at Warn.
	Disabled bool
}

// RoleGate decides access per UI path from the role claim of the session
// cookie. The role is obtained by peeking, not verifying - this runs on
// every request including static assets and is a routing decision only.
// The /api boundary performs full verification before anything privileged.
//
// Per request: UNAUTHENTICATED -> role resolved -> allowed, denied
// (redirect to /login), or refreshed-then-allowed.
func RoleGate(cfg GateConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Disabled {
			logger.FromGin(c).Warn("role gating BYPASSED by E2E_DISABLE_ROLE_MIDDLEWARE",
				"path", c.Request.URL.Path)
			c.Next()
			return
		}

		raw, _ := c.Cookie(CookieSession)
		role := ""
		if raw != "" {
			role, _ = token.PeekRole(raw)
		}

		// Refresh runs independently of the authorization outcome, so a
		// denied-but-authenticated user still gets their session extended.
		maybeRefresh(c, cfg, raw)

		switch roles.Decide(c.Request.URL.Path, role) {
		case roles.Denied:
			if raw != "" {
				// Diagnostic: lets the client tell "wrong role" apart
				// from "no session".
				c.Header(HeaderStaleSession, raw)
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		default:
			c.Next()
		}
	}
}

// maybeRefresh rotates the token pair when the (fully verified) access
// token expires within RefreshWindow and a refresh cookie is present. All
// failures are swallowed: the request proceeds on the old, still-valid
// token rather than failing.
func maybeRefresh(c *gin.Context, cfg GateConfig, rawSession string) {
	if rawSession == "" || cfg.Refresher == nil {
		return
	}
	claims, err := cfg.Codec.VerifyAccess(rawSession, time.Now())
	if err != nil || claims.ExpiresAt == nil {
		return
	}
	if time.Until(claims.ExpiresAt.Time) > RefreshWindow {
		return
	}
	rawRefresh, err := c.Cookie(CookieRefresh)
	if err != nil || rawRefresh == "" {
		return
	}

	access, refresh, err := cfg.Refresher.Rotate(c.Request.Context(), rawRefresh)
	if err != nil {
		logger.FromGin(c).Debug("transparent refresh failed; continuing with current token", "err", err)
		return
	}
	cfg.Policy.Apply(c,
		cfg.Policy.Session(access, cfg.Codec.AccessTTL()),
		cfg.Policy.Refresh(refresh, cfg.Codec.RefreshTTL()),
	)
}
