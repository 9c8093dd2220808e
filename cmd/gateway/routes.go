package main

import (
	"database/sql"
	"net/http"
	"time"

	"lms-edge/internal/files"
	"lms-edge/internal/httpapi"
	"lms-edge/internal/session"
	"lms-edge/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	handlers httpapi.Handlers
	gate     session.GateConfig
	files    *files.Server
	db       *sql.DB
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if deps.db != nil {
			if err := utils.HealthCheck(c.Request.Context(), deps.db, 2*time.Second); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "unreachable"})
				return
			}
		}
		if !deps.handlers.Proxy.Reachable(c) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "backend": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := deps.handlers

	// Auth endpoints. Login and refresh stay outside the CSRF middleware:
	// no token can exist before a session does.
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", httpapi.CSRF(), h.Logout)
		auth.POST("/logout-all", httpapi.CSRF(), session.Authenticate(deps.gate.Codec), h.LogoutAll)
		auth.GET("/me", h.Me)
		auth.GET("/permissions", session.Authenticate(deps.gate.Codec), h.UserPermissions)
	}

	// Uploaded files: local roots first, backend second.
	r.GET("/files/*path", deps.files.Serve)

	// Everything else under /api streams through to the backend, which
	// performs full token verification and permission checks itself.
	// The role gate below covers UI paths only.
	r.Use(session.RoleGate(deps.gate))
	r.Use(apiCSRF())
	r.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 5 && c.Request.URL.Path[:5] == "/api/" {
			h.APICatchall(c)
			return
		}
		c.Status(http.StatusNotFound)
	})
}

// apiCSRF scopes the double-submit check to proxied /api routes; UI page
// loads are plain GETs and never carry the header.
func apiCSRF() gin.HandlerFunc {
	check := httpapi.CSRF()
	return func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 5 && c.Request.URL.Path[:5] == "/api/" {
			check(c)
			return
		}
		c.Next()
	}
}
