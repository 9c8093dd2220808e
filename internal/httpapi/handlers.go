package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"time"

	"lms-edge/internal/audit"
	"lms-edge/internal/identity"
	"lms-edge/internal/metrics"
	"lms-edge/internal/permissions"
	"lms-edge/internal/proxy"
	"lms-edge/internal/session"
	"lms-edge/internal/token"
	"lms-edge/pkg/logger"
	"lms-edge/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
//
// Identities, Fixtures, Permissions, Audit and Limiter are all optional;
// handlers degrade gracefully when a collaborator is not wired.

type Handlers struct {
	Codec       *token.Codec
	Policy      session.CookiePolicy
	Refresher   *session.Refresher
	Proxy       *proxy.Proxy
	Identities  identity.Store
	Fixtures    *identity.FixtureProvider
	Permissions *permissions.Service
	Audit       *audit.Service
	Limiter     *utils.RateLimiter
	Production  bool
}

// --- Login ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// backendUser is the identity shape the backend returns on a successful
// credential check. Unknown fields are ignored; the edge only needs what
// goes into token claims.
type backendUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TenantID     string `json:"tenantId"`
	NodeID       string `json:"nodeId"`
	TokenVersion int    `json:"tokenVersion"`
}

func (u backendUser) identity() token.Identity {
	return token.Identity{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		TenantID:     u.TenantID,
		NodeID:       u.NodeID,
		TokenVersion: u.TokenVersion,
	}
}

// Login validates credentials against the backend and mints the session
// locally. When the backend is unreachable outside production, the fixture
// table takes over so local development survives a down backend.
func (h Handlers) Login(c *gin.Context) {
	if h.Codec == nil || h.Proxy == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	if h.Limiter != nil {
		ok, err := h.Limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Limiter backend down: let logins through rather than
			// locking everyone out.
			logger.FromGin(c).Warn("login rate limiter unavailable", "err", err)
		} else if !ok {
			metrics.Logins.WithLabelValues("rate_limited").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
			return
		}
	}

	resp, err := h.Proxy.Do(c.Request.Context(), http.MethodPost, "/api/auth/login", req)
	if err != nil {
		h.loginFallback(c, req)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Relay the backend's rejection verbatim; the edge adds nothing.
		metrics.Logins.WithLabelValues("denied").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		c.Data(resp.StatusCode, "application/json", body)
		c.Abort()
		return
	}

	var payload struct {
		User backendUser `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.User.ID == "" {
		metrics.Logins.WithLabelValues("error").Inc()
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "bad_gateway", "message": "malformed backend response"})
		return
	}

	id := payload.User.identity()
	if err := h.issueSession(c, id); err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	_ = h.Audit.LogLogin(c.Request.Context(), id.TenantID, id.UserID, id.Role, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"user": payload.User})
}

// loginFallback handles the backend-unreachable branch of login. The
// fixture path only exists outside production and only when a provider
// was wired at startup.
func (h Handlers) loginFallback(c *gin.Context, req loginRequest) {
	metrics.BackendUnreachable.Inc()
	if h.Production || h.Fixtures == nil {
		metrics.Logins.WithLabelValues("error").Inc()
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "bad_gateway", "message": "backend unreachable"})
		return
	}

	id, ok := h.Fixtures.Authenticate(req.Email, req.Password)
	if !ok {
		metrics.Logins.WithLabelValues("denied").Inc()
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := h.issueSession(c, id); err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	logger.FromGin(c).Warn("fixture login used, backend unreachable", "email", req.Email)
	metrics.Logins.WithLabelValues("fixture").Inc()
	_ = h.Audit.LogFixtureLogin(c.Request.Context(), id.TenantID, id.UserID, id.Role, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"user": gin.H{
		"id":    id.UserID,
		"email": id.Email,
		"role":  id.Role,
	}})
}

// issueSession signs a fresh token pair and sets the three session cookies.
func (h Handlers) issueSession(c *gin.Context, id token.Identity) error {
	now := time.Now()
	access, err := h.Codec.SignAccess(now, id)
	if err != nil {
		return err
	}
	refresh, err := h.Codec.SignRefresh(now, id)
	if err != nil {
		return err
	}
	h.Policy.Apply(c,
		h.Policy.Session(access, h.Codec.AccessTTL()),
		h.Policy.Refresh(refresh, h.Codec.RefreshTTL()),
		h.Policy.CSRF(uuid.NewString(), h.Codec.RefreshTTL()),
	)
	return nil
}

// --- Logout ---

// Logout clears the auth cookies and the caller's permission cache entry.
// It never contacts the backend: tokens on other devices stay valid until
// natural expiry (logout-all exists for the stronger guarantee).
func (h Handlers) Logout(c *gin.Context) {
	// Best-effort identity for the audit trail; an absent or invalid
	// token still logs the caller out.
	var id token.Identity
	if raw, err := c.Cookie(session.CookieSession); err == nil {
		if claims, err := h.Codec.VerifyAccess(raw, time.Now()); err == nil {
			id = claims.Identity()
		}
	}

	if h.Permissions != nil && id.UserID != "" {
		h.Permissions.Clear(c.Request.Context(), id.UserID)
	}
	h.Policy.ClearAuth(c)
	_ = h.Audit.LogLogout(c.Request.Context(), id.TenantID, id.UserID, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// LogoutAll bumps the caller's tokenVersion, invalidating every token
// signed before the bump. Routes here through session.Authenticate, which
// verifies the access token and puts the identity on the context.
func (h Handlers) LogoutAll(c *gin.Context) {
	id, err := token.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if h.Identities == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "identity store unavailable"})
		return
	}

	version, err := h.Identities.BumpTokenVersion(c.Request.Context(), id.UserID)
	if err != nil {
		logger.FromGin(c).Error("tokenVersion bump failed", "user", id.UserID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "logout-all failed"})
		return
	}

	if h.Permissions != nil {
		h.Permissions.Clear(c.Request.Context(), id.UserID)
	}
	h.Policy.ClearAuth(c)
	_ = h.Audit.LogLogoutAll(c.Request.Context(), id.TenantID, id.UserID, c.ClientIP(), version)
	c.JSON(http.StatusOK, gin.H{"success": true, "tokenVersion": version})
}

// --- Refresh ---

// Refresh rotates the token pair from the refresh cookie. Any failure is
// terminal: both cookies are cleared and the caller is logged out, never
// left with partial state.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Refresher == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}

	raw, err := c.Cookie(session.CookieRefresh)
	if err != nil {
		h.refreshFailed(c)
		return
	}
	access, refresh, err := h.Refresher.Rotate(c.Request.Context(), raw)
	if err != nil {
		h.refreshFailed(c)
		return
	}

	h.Policy.Apply(c,
		h.Policy.Session(access, h.Codec.AccessTTL()),
		h.Policy.Refresh(refresh, h.Codec.RefreshTTL()),
	)
	metrics.Refreshes.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h Handlers) refreshFailed(c *gin.Context) {
	metrics.Refreshes.WithLabelValues("failed").Inc()
	h.Policy.ClearAuth(c)
	_ = h.Audit.LogRefreshFailed(c.Request.Context(), c.ClientIP())
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "refresh failed"})
}

// UserPermissions returns the caller's resolved permission set from the
// cache, resolving on miss. Without a local permission store the backend
// owns resolution and the request passes through.
func (h Handlers) UserPermissions(c *gin.Context) {
	id, err := token.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if h.Permissions == nil {
		h.Proxy.Forward(c, proxy.Options{})
		return
	}

	set := h.Permissions.GetUserPermissions(c.Request.Context(), id.UserID, id.Role)
	c.JSON(http.StatusOK, gin.H{
		"permissions": set.List(),
		"degraded":    set.Errored(),
	})
}

// --- Proxied routes ---

// Me forwards to the backend's identity endpoint with cookies intact.
func (h Handlers) Me(c *gin.Context) {
	h.Proxy.Forward(c, proxy.Options{})
}

var courseDeletePath = regexp.MustCompile(`^/api/courses/([^/]+)$`)

// APICatchall is the generic reverse proxy behind every /api route the
// edge does not handle itself. Route-name rewrites and explicit request
// transformations happen here, before the passthrough.
func (h Handlers) APICatchall(c *gin.Context) {
	path := c.Request.URL.Path

	if c.Request.Method == http.MethodDelete {
		if m := courseDeletePath.FindStringSubmatch(path); m != nil {
			h.Proxy.ForwardCourseDelete(c, m[1])
			return
		}
	}

	h.Proxy.Forward(c, proxy.Options{PathOverride: proxy.RewritePath(path)})
}
